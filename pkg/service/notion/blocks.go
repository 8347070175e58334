package notion

import (
	"strconv"
	"strings"

	"github.com/jomei/notionapi"
)

// Block is the text content of a Notion block
type Block struct {
	Type     notionapi.BlockType
	Text     string
	Checked  bool
	Children Blocks
}

type Blocks []Block

func convertBlock(obj notionapi.Block) Block {
	block := Block{Type: obj.GetType()}

	switch b := obj.(type) {
	case *notionapi.ParagraphBlock:
		block.Text = richText(b.Paragraph.RichText)
	case *notionapi.Heading1Block:
		block.Text = richText(b.Heading1.RichText)
	case *notionapi.Heading2Block:
		block.Text = richText(b.Heading2.RichText)
	case *notionapi.Heading3Block:
		block.Text = richText(b.Heading3.RichText)
	case *notionapi.BulletedListItemBlock:
		block.Text = richText(b.BulletedListItem.RichText)
	case *notionapi.NumberedListItemBlock:
		block.Text = richText(b.NumberedListItem.RichText)
	case *notionapi.CodeBlock:
		block.Text = richText(b.Code.RichText)
	case *notionapi.QuoteBlock:
		block.Text = richText(b.Quote.RichText)
	case *notionapi.CalloutBlock:
		block.Text = richText(b.Callout.RichText)
	case *notionapi.ToggleBlock:
		block.Text = richText(b.Toggle.RichText)
	case *notionapi.ToDoBlock:
		block.Text = richText(b.ToDo.RichText)
		block.Checked = b.ToDo.Checked
	}

	return block
}

// PlainText renders blocks as indented plain text lines. Headings and list items keep a
// light prefix so structure survives chunking.
func (b Blocks) PlainText() string {
	var sb strings.Builder
	b.write(&sb, 0)
	return sb.String()
}

func (b Blocks) write(sb *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	number := 0

	for _, block := range b {
		if block.Type == notionapi.BlockTypeNumberedListItem {
			number++
		} else {
			number = 0
		}

		prefix := ""
		switch block.Type {
		case notionapi.BlockTypeHeading1:
			prefix = "# "
		case notionapi.BlockTypeHeading2:
			prefix = "## "
		case notionapi.BlockTypeHeading3:
			prefix = "### "
		case notionapi.BlockTypeBulletedListItem:
			prefix = "- "
		case notionapi.BlockTypeNumberedListItem:
			prefix = strconv.Itoa(number) + ". "
		case notionapi.BlockTypeQuote, notionapi.BlockTypeCallout:
			prefix = "> "
		case notionapi.BlockTypeToDo:
			prefix = "- [ ] "
			if block.Checked {
				prefix = "- [x] "
			}
		}

		if text := strings.TrimSpace(block.Text); text != "" {
			for _, line := range strings.Split(text, "\n") {
				sb.WriteString(indent)
				sb.WriteString(prefix)
				sb.WriteString(line)
				sb.WriteString("\n")
				prefix = strings.Repeat(" ", len(prefix))
			}
		}

		if len(block.Children) > 0 {
			block.Children.write(sb, depth+1)
		}
	}
}

