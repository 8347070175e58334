package usecase

// LockedKeysForTest returns how many document locks are currently tracked
func (uc *UseCases) LockedKeysForTest() int {
	return uc.locks.size()
}
