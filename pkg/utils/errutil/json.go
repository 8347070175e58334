package errutil

import (
	"encoding/json"
	"io"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSONError(w io.Writer, msg string) error {
	return json.NewEncoder(w).Encode(errorBody{Error: msg})
}
