package market

import "testing"

type repairTarget struct {
	A int      `json:"a"`
	B string   `json:"b"`
	C []string `json:"c"`
}

func TestRepairUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ok   bool
		want repairTarget
	}{
		{
			name: "clean json",
			raw:  `{"a":1,"b":"x","c":["y"]}`,
			ok:   true,
			want: repairTarget{A: 1, B: "x", C: []string{"y"}},
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"a\":2,\"b\":\"x\"}\n```",
			ok:   true,
			want: repairTarget{A: 2, B: "x"},
		},
		{
			name: "trailing commas",
			raw:  `{"a":3,"b":"x","c":["y",],}`,
			ok:   true,
			want: repairTarget{A: 3, B: "x", C: []string{"y"}},
		},
		{
			name: "smart quotes",
			raw:  "{\u201ca\u201d:4,\u201cb\u201d:\u201cx\u201d}",
			ok:   true,
			want: repairTarget{A: 4, B: "x"},
		},
		{
			name: "json embedded in prose",
			raw:  "Here is my assessment:\n{\"a\":5,\"b\":\"x\"}\nHope that helps!",
			ok:   true,
			want: repairTarget{A: 5, B: "x"},
		},
		{
			name: "fenced with trailing comma and prose",
			raw:  "Sure!\n```\n{\"a\":6,\"b\":\"x\",}\n```",
			ok:   true,
			want: repairTarget{A: 6, B: "x"},
		},
		{name: "plain prose", raw: "I cannot help with that.", ok: false},
		{name: "empty", raw: "", ok: false},
		{name: "unclosed object", raw: `{"a":1,"b":`, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got repairTarget
			ok := repairUnmarshal(tt.raw, &got)
			if ok != tt.ok {
				t.Fatalf("repairUnmarshal ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if got.A != tt.want.A || got.B != tt.want.B || len(got.C) != len(tt.want.C) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLargestJSONBlock(t *testing.T) {
	raw := `noise {"small":1} more noise {"big":{"nested":[1,2,3]}} tail`
	got := largestJSONBlock(raw)
	want := `{"big":{"nested":[1,2,3]}}`
	if got != want {
		t.Fatalf("largestJSONBlock = %q, want %q", got, want)
	}
}
