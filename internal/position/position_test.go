package position

import "testing"

func TestClassifyInsertAtEnd(t *testing.T) {
	old := "Initial content"
	new := "Initial content\nNew line added"
	res := Classify(old, new, 16, 16)
	if res.Op.Kind != KindInsert {
		t.Fatalf("expected insert, got %s", res.Op)
	}
	if res.Op.Start != 15 || res.Op.Text != "\nNew line added" {
		t.Fatalf("unexpected insert op: %s", res.Op)
	}
	if res.Caret != 15+len("\nNew line added") {
		t.Fatalf("unexpected caret %d", res.Caret)
	}
}

func TestClassifyInsertMiddle(t *testing.T) {
	res := Classify("hello world", "hello brave world", 6, 6)
	if res.Op.Kind != KindInsert || res.Op.Start != 6 || res.Op.Text != "brave " {
		t.Fatalf("unexpected op: %s", res.Op)
	}
}

func TestClassifyDeleteSelection(t *testing.T) {
	res := Classify("hello brave world", "hello world", 6, 12)
	if res.Op.Kind != KindDelete || res.Op.Start != 6 || res.Op.End != 12 {
		t.Fatalf("unexpected op: %s", res.Op)
	}
}

func TestClassifyBackspace(t *testing.T) {
	// Pre-edit cursor sat after the removed byte, so the prefix changed.
	res := Classify("abcdef", "abdef", 3, 3)
	if res.Op.Kind != KindDelete || res.Op.Start != 2 || res.Op.End != 3 {
		t.Fatalf("unexpected op: %s", res.Op)
	}
}

func TestClassifyForwardDelete(t *testing.T) {
	// Prefix unchanged: deletion happened at the cursor.
	res := Classify("abcdef", "abcef", 3, 3)
	if res.Op.Kind != KindDelete || res.Op.Start != 3 || res.Op.End != 4 {
		t.Fatalf("unexpected op: %s", res.Op)
	}
}

func TestClassifySingleCharReplace(t *testing.T) {
	res := Classify("cat", "bat", 0, 0)
	if res.Op.Kind != KindReplace || res.Op.Start != 0 || res.Op.End != 1 || res.Op.Text != "b" {
		t.Fatalf("unexpected op: %s", res.Op)
	}
}

func TestClassifySameLengthSelectionReplace(t *testing.T) {
	res := Classify("xxABxx", "xxCDxx", 2, 4)
	if res.Op.Kind != KindReplace || res.Op.Start != 2 || res.Op.End != 4 || res.Op.Text != "CD" {
		t.Fatalf("unexpected op: %s", res.Op)
	}
}

func TestClassifySameLengthMultiCharNoSelection(t *testing.T) {
	res := Classify("Initial content", "Updated content", 0, 0)
	if res.Op.Kind != KindReplace {
		t.Fatalf("expected replace, got %s", res.Op)
	}
	if res.Op.Start != 0 || res.Op.End != 7 || res.Op.Text != "Updated" {
		t.Fatalf("unexpected span: %s", res.Op)
	}
}

func TestClassifyNoOp(t *testing.T) {
	res := Classify("same", "same", 2, 2)
	if res.Op.Kind != KindNoOp {
		t.Fatalf("expected noop, got %s", res.Op)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		a := Classify("cat", "bat", 0, 0)
		b := Classify("cat", "bat", 0, 0)
		if a != b {
			t.Fatalf("classification not deterministic: %v vs %v", a, b)
		}
	}
}
