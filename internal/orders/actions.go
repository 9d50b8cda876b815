package orders

import (
	"fmt"
	"strconv"
	"strings"
)

// Action block delimiters the model is instructed to emit around
// structured commands.
const (
	ActionBlockStart = "[ACTIONS]"
	ActionBlockEnd   = "[/ACTIONS]"
)

// Command is one parsed order action. The concrete types form a tagged
// union so every command is validated field-by-field instead of being
// re-scanned as text downstream.
type Command interface{ command() }

// AddProduct adds a catalog variant to the pending order.
type AddProduct struct {
	ProductID string
	VariantID string
	Quantity  int
}

// UpdateInfo merges customer contact fields into the pending order.
type UpdateInfo struct {
	Name    string
	Phone   string
	Address string
}

// ConfirmOrder moves the pending order to confirmed.
type ConfirmOrder struct{}

// CancelOrder cancels the pending order.
type CancelOrder struct{}

func (AddProduct) command()   {}
func (UpdateInfo) command()   {}
func (ConfirmOrder) command() {}
func (CancelOrder) command()  {}

// ParseActions extracts the action block from model output and parses it
// line by line. found reports whether a block was present at all. A
// malformed line yields an error and is skipped; remaining lines still
// parse.
func ParseActions(text string) (cmds []Command, errs []error, found bool) {
	start := strings.Index(text, ActionBlockStart)
	if start < 0 {
		return nil, nil, false
	}
	rest := text[start+len(ActionBlockStart):]
	end := strings.Index(rest, ActionBlockEnd)
	if end >= 0 {
		rest = rest[:end]
	}

	for _, line := range strings.Split(rest, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cmd, err := parseLine(line)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		cmds = append(cmds, cmd)
	}
	return cmds, errs, true
}

// StripActions removes the action block from model output, leaving only
// the customer-visible text. A block with a missing end delimiter runs
// to the end of the text, matching how ParseActions reads it.
func StripActions(text string) string {
	start := strings.Index(text, ActionBlockStart)
	if start < 0 {
		return text
	}
	head := text[:start]
	rest := text[start+len(ActionBlockStart):]
	if end := strings.Index(rest, ActionBlockEnd); end >= 0 {
		head += rest[end+len(ActionBlockEnd):]
	}
	return strings.TrimSpace(head)
}

func parseLine(line string) (Command, error) {
	name, value, ok := strings.Cut(line, ":")
	if !ok {
		return nil, fmt.Errorf("action line %q: missing ':'", line)
	}
	name = strings.TrimSpace(strings.ToUpper(name))
	value = strings.TrimSpace(value)

	switch name {
	case "ADD_PRODUCT":
		return parseAddProduct(value)
	case "UPDATE_INFO":
		return parseUpdateInfo(value)
	case "CONFIRM_ORDER":
		if !strings.EqualFold(value, "true") {
			return nil, fmt.Errorf("CONFIRM_ORDER: expected true, got %q", value)
		}
		return ConfirmOrder{}, nil
	case "CANCEL_ORDER":
		if !strings.EqualFold(value, "true") {
			return nil, fmt.Errorf("CANCEL_ORDER: expected true, got %q", value)
		}
		return CancelOrder{}, nil
	default:
		return nil, fmt.Errorf("unknown action %q", name)
	}
}

func parseAddProduct(value string) (Command, error) {
	parts := strings.Split(value, ",")
	if len(parts) == 0 || strings.TrimSpace(parts[0]) == "" {
		return nil, fmt.Errorf("ADD_PRODUCT: missing product id in %q", value)
	}

	cmd := AddProduct{ProductID: strings.TrimSpace(parts[0]), Quantity: 1}
	if len(parts) > 1 {
		cmd.VariantID = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		// Quantity coerces to a positive integer; anything unparsable
		// falls back to 1.
		if q, err := strconv.Atoi(strings.TrimSpace(parts[2])); err == nil && q > 0 {
			cmd.Quantity = q
		}
	}
	return cmd, nil
}

func parseUpdateInfo(value string) (Command, error) {
	var cmd UpdateInfo
	any := false
	for _, field := range strings.Split(value, ",") {
		k, v, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(strings.ToLower(k))
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		switch k {
		case "name":
			cmd.Name = v
			any = true
		case "phone":
			cmd.Phone = v
			any = true
		case "address":
			cmd.Address = v
			any = true
		}
	}
	if !any {
		return nil, fmt.Errorf("UPDATE_INFO: no recognized fields in %q", value)
	}
	return cmd, nil
}
