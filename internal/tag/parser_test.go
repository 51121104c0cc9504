package tag

import "testing"

func TestParse_Scenario1_BitInDataBlock(t *testing.T) {
	item, err := Parse("DB1.80000,x,1")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if item.Area.Kind != DataBlock || item.Area.DBNumber != 1 {
		t.Fatalf("area = %+v, want DataBlock{1}", item.Area)
	}
	if item.Type != Bit {
		t.Fatalf("type = %v, want Bit", item.Type)
	}
	if item.Offset != 640000 {
		t.Fatalf("offset = %d, want 640000 (80000*8+0)", item.Offset)
	}
	if item.Count != 1 {
		t.Fatalf("count = %d, want 1", item.Count)
	}
}

func TestParse_Scenario2_WordInFlagByte(t *testing.T) {
	item, err := Parse("M10.2,w,4")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if item.Area.Kind != FlagByte {
		t.Fatalf("area = %+v, want FlagByte", item.Area)
	}
	if item.Type != Word {
		t.Fatalf("type = %v, want Word", item.Type)
	}
	if item.ByteOffset() != 10 {
		t.Fatalf("byte offset = %d, want 10 (x-suffix rule does not apply)", item.ByteOffset())
	}
	if item.Count != 4 {
		t.Fatalf("count = %d, want 4", item.Count)
	}
}

func TestParse_XSuffixWithoutDigitsDefaultsToZero(t *testing.T) {
	item, err := Parse("M0,x")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if item.Type != Bit {
		t.Fatalf("type = %v, want Bit", item.Type)
	}
	if item.Offset != 0 {
		t.Fatalf("offset = %d, want 0", item.Offset)
	}
}

func TestParse_MissingTypeDefaultsToByteCountOne(t *testing.T) {
	item, err := Parse("Q5")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if item.Type != Byte || item.Count != 1 {
		t.Fatalf("item = %+v, want {Byte, count=1}", item)
	}
	if item.Area.Kind != OutputByte {
		t.Fatalf("area = %+v, want OutputByte", item.Area)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name    string
		tag     string
		inState ParseState
	}{
		{"unknown area", "X1.0,b,1", StateArea},
		{"missing dot", "DB1 5,b,1", StateArea},
		{"missing offset digits", "DB1.,b,1", StateOffset},
		{"unknown type", "DB1.0,zz,1", StateType},
		{"missing count digits", "DB1.0,b,", StateNumberOfItems},
		{"trailing garbage", "DB1.0,b,1,", StateType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.tag)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", tc.tag)
			}
			pe, ok := err.(*ParseError)
			if !ok {
				t.Fatalf("error type = %T, want *ParseError", err)
			}
			if pe.State != tc.inState {
				t.Fatalf("state = %v, want %v", pe.State, tc.inState)
			}
			if pe.FullTag != tc.tag {
				t.Fatalf("FullTag = %q, want %q", pe.FullTag, tc.tag)
			}
		})
	}
}

// TestParse_RoundTrip parses each accepted tag twice and checks that both
// parses agree on area, offset, type and count (parsing is deterministic).
func TestParse_RoundTrip(t *testing.T) {
	cases := []string{
		"I0.0,b,1",
		"E12,w,2",
		"M100.5,x3",
		"Q0,dw,1",
		"A1,i,8",
		"T0",
		"C3",
		"Z7",
		"DB10.0,r,4",
		"DB2.16,s,10",
	}
	for _, tagStr := range cases {
		t.Run(tagStr, func(t *testing.T) {
			item, err := Parse(tagStr)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tagStr, err)
			}
			again, err := Parse(tagStr)
			if err != nil {
				t.Fatalf("second Parse(%q) failed: %v", tagStr, err)
			}
			if item.Area != again.Area || item.Offset != again.Offset ||
				item.Type != again.Type || item.Count != again.Count {
				t.Fatalf("parse not stable: %+v vs %+v", item, again)
			}
		})
	}
}
