package cmd

import "testing"

func TestUnit_ReadSourcePrefersInlineExpr(t *testing.T) {
	input, filename, err := readSource("$x + 1", nil)
	if err != nil {
		t.Fatalf("readSource: %v", err)
	}
	if input != "$x + 1" || filename != "<eval>" {
		t.Errorf("got (%q, %q), want (%q, %q)", input, filename, "$x + 1", "<eval>")
	}
}

func TestUnit_ReadSourceRequiresInputOfSomeKind(t *testing.T) {
	if _, _, err := readSource("", nil); err == nil {
		t.Fatal("expected an error when neither -e nor a file path is given")
	}
}

func TestUnit_RunTokenizeReportsErrorTokenCount(t *testing.T) {
	tokenizeExpr = "1 @ 2"
	tokenizeOnlyErrs = true
	defer func() {
		tokenizeExpr = ""
		tokenizeOnlyErrs = false
	}()

	err := runTokenize(nil, nil)
	if err == nil {
		t.Fatal("expected an error for input containing an unrecognized character")
	}
}
