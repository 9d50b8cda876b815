package orders

import "testing"

func TestParseActions_NoBlock(t *testing.T) {
	cmds, errs, found := ParseActions("Sure, I've added that to your order.")
	if found {
		t.Fatal("found = true for text without an action block")
	}
	if cmds != nil || errs != nil {
		t.Error("expected no commands or errors")
	}
}

func TestParseActions_FullBlock(t *testing.T) {
	text := `Great choice! Adding it now.
[ACTIONS]
ADD_PRODUCT: p1, v2, 3
UPDATE_INFO: name=Sara, phone=70123456
CONFIRM_ORDER: true
[/ACTIONS]`

	cmds, errs, found := ParseActions(text)
	if !found {
		t.Fatal("block not detected")
	}
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(cmds) != 3 {
		t.Fatalf("got %d commands, want 3", len(cmds))
	}

	add, ok := cmds[0].(AddProduct)
	if !ok || add.ProductID != "p1" || add.VariantID != "v2" || add.Quantity != 3 {
		t.Errorf("cmd[0] = %+v", cmds[0])
	}
	info, ok := cmds[1].(UpdateInfo)
	if !ok || info.Name != "Sara" || info.Phone != "70123456" || info.Address != "" {
		t.Errorf("cmd[1] = %+v", cmds[1])
	}
	if _, ok := cmds[2].(ConfirmOrder); !ok {
		t.Errorf("cmd[2] = %+v", cmds[2])
	}
}

func TestParseActions_MalformedLinesAreSkipped(t *testing.T) {
	text := `[ACTIONS]
ADD_PRODUCT: p1
this line has no colon
FROB_WIDGET: true
CANCEL_ORDER: true
[/ACTIONS]`

	cmds, errs, found := ParseActions(text)
	if !found {
		t.Fatal("block not detected")
	}
	if len(errs) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(errs), errs)
	}
	if len(cmds) != 2 {
		t.Fatalf("got %d commands, want 2", len(cmds))
	}
	if add, ok := cmds[0].(AddProduct); !ok || add.ProductID != "p1" || add.Quantity != 1 {
		t.Errorf("cmd[0] = %+v", cmds[0])
	}
	if _, ok := cmds[1].(CancelOrder); !ok {
		t.Errorf("cmd[1] = %+v", cmds[1])
	}
}

func TestParseActions_MissingEndDelimiter(t *testing.T) {
	cmds, _, found := ParseActions("[ACTIONS]\nADD_PRODUCT: p9, v1")
	if !found || len(cmds) != 1 {
		t.Fatalf("found=%v cmds=%v", found, cmds)
	}
}

func TestParseAddProduct_QuantityCoercion(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"p1, v1, 5", 5},
		{"p1, v1, 0", 1},
		{"p1, v1, -2", 1},
		{"p1, v1, many", 1},
		{"p1, v1", 1},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			cmd, err := parseAddProduct(tt.value)
			if err != nil {
				t.Fatal(err)
			}
			if got := cmd.(AddProduct).Quantity; got != tt.want {
				t.Errorf("quantity = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseLine_ConfirmRequiresTrue(t *testing.T) {
	if _, err := parseLine("CONFIRM_ORDER: yes"); err == nil {
		t.Error("CONFIRM_ORDER with non-true value should fail")
	}
	if _, err := parseLine("confirm_order: TRUE"); err != nil {
		t.Errorf("case-insensitive confirm failed: %v", err)
	}
}

func TestParseUpdateInfo_NoFields(t *testing.T) {
	if _, err := parseUpdateInfo("color=red"); err == nil {
		t.Error("unrecognized fields only should fail")
	}
}

func TestStripActions(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"no block", "Sure, we have that in stock.", "Sure, we have that in stock."},
		{"block after text", "Added!\n[ACTIONS]\nADD_PRODUCT: p1, v1, 1\n[/ACTIONS]", "Added!"},
		{"block only", "[ACTIONS]\nCONFIRM_ORDER: true\n[/ACTIONS]", ""},
		{"text after block", "[ACTIONS]\nCANCEL_ORDER: true\n[/ACTIONS]\nCancelled, sorry to see you go.", "Cancelled, sorry to see you go."},
		{"missing end delimiter", "On it!\n[ACTIONS]\nADD_PRODUCT: p1", "On it!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripActions(tt.in); got != tt.want {
				t.Errorf("StripActions(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
