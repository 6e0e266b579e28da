package db

import "testing"

func TestIndexBuilder_Simple(t *testing.T) {
	idx := NewIndex("chunks").
		Prefix("chunk:").
		Tag("course").
		Text("text").
		MustBuild()

	if err := idx.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.Name != "chunks" {
		t.Errorf("name = %q, want chunks", idx.Name)
	}
	if len(idx.Fields) != 2 {
		t.Fatalf("fields count = %d, want 2", len(idx.Fields))
	}
	if idx.Fields[0].Name != "course" || idx.Fields[0].Type != IndexFieldTag {
		t.Errorf("field[0] = %+v, want course TAG", idx.Fields[0])
	}
	if idx.Fields[1].Name != "text" || idx.Fields[1].Type != IndexFieldText {
		t.Errorf("field[1] = %+v, want text TEXT", idx.Fields[1])
	}
}

func TestIndexBuilder_VectorHNSW(t *testing.T) {
	idx := NewIndex("chunks").
		Prefix("chunk:").
		VectorHNSW("vector", 1536, DistanceCosine, 16, 200).
		MustBuild()

	if len(idx.Fields) != 1 {
		t.Fatalf("fields count = %d, want 1", len(idx.Fields))
	}
	f := idx.Fields[0]
	if f.VectorAlgo != VectorHNSW {
		t.Errorf("algo = %q, want HNSW", f.VectorAlgo)
	}
	if f.VectorDim != 1536 {
		t.Errorf("dim = %d, want 1536", f.VectorDim)
	}
	if f.VectorDistance != DistanceCosine {
		t.Errorf("distance = %q, want COSINE", f.VectorDistance)
	}
	if f.VectorM != 16 || f.VectorEFConstruct != 200 {
		t.Errorf("hnsw params = %d/%d, want 16/200", f.VectorM, f.VectorEFConstruct)
	}
}

func TestIndexBuilder_VectorFlat(t *testing.T) {
	idx := NewIndex("chunks").
		VectorFlat("vector", 768, DistanceL2, 1024).
		MustBuild()

	f := idx.Fields[0]
	if f.VectorAlgo != VectorFlat {
		t.Errorf("algo = %q, want FLAT", f.VectorAlgo)
	}
	if f.VectorBlockSize != 1024 {
		t.Errorf("block size = %d, want 1024", f.VectorBlockSize)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		def  IndexDefinition
	}{
		{"empty name", IndexDefinition{Fields: []IndexField{{Name: "f", Type: IndexFieldText}}}},
		{"bad name", IndexDefinition{Name: "bad name!", Fields: []IndexField{{Name: "f", Type: IndexFieldText}}}},
		{"no fields", IndexDefinition{Name: "idx"}},
		{"unnamed field", IndexDefinition{Name: "idx", Fields: []IndexField{{Type: IndexFieldText}}}},
		{"duplicate field", IndexDefinition{Name: "idx", Fields: []IndexField{
			{Name: "f", Type: IndexFieldText},
			{Name: "f", Type: IndexFieldTag},
		}}},
		{"vector without dim", IndexDefinition{Name: "idx", Fields: []IndexField{
			{Name: "v", Type: IndexFieldVector},
		}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.def.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestIsValidIdentifier(t *testing.T) {
	valid := []string{"chunks", "idx_1", "a:b", "with-dash"}
	for _, s := range valid {
		if !IsValidIdentifier(s) {
			t.Errorf("IsValidIdentifier(%q) = false, want true", s)
		}
	}
	invalid := []string{"", "has space", "semi;colon", "star*"}
	for _, s := range invalid {
		if IsValidIdentifier(s) {
			t.Errorf("IsValidIdentifier(%q) = true, want false", s)
		}
	}
}
