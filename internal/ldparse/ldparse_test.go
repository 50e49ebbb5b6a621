package ldparse

import (
	"strings"
	"testing"
)

func testConfig() Config {
	return Config{
		IndexID: Column{Index: 1},
		LDID:    Column{Index: 2},
		MAF:     Column{Index: 3},
		R2:      Column{Index: 4},
	}
}

func TestIterateTinyInput(t *testing.T) {
	input := `rs1 rs2 0.10 0.9
rs1 rs3 0.10 0.7
rs1 rs4 0.10 0.4
rs5 rs6 0.25 0.95
`
	var pairs []LDPair
	var summaries []IndexVariantSummary
	var invalid []InvalidLine

	err := Iterate(strings.NewReader(input), testConfig(), 0.5,
		func(p LDPair) { pairs = append(pairs, p) },
		func(s IndexVariantSummary) { summaries = append(summaries, s) },
		func(l InvalidLine) { invalid = append(invalid, l) },
	)
	if err != nil {
		t.Fatalf("Iterate: %v", err)
	}
	if len(invalid) != 0 {
		t.Fatalf("invalid lines = %v, want none", invalid)
	}

	if len(pairs) != 3 {
		t.Fatalf("pairs = %v, want 3 in-LD pairs", pairs)
	}
	for _, want := range []string{"rs2", "rs3"} {
		found := false
		for _, p := range pairs {
			if p.IndexID == "rs1" && p.LDID == want {
				found = true
			}
		}
		if !found {
			t.Errorf("missing pair rs1->%s", want)
		}
	}

	if len(summaries) != 2 {
		t.Fatalf("summaries = %v, want 2", summaries)
	}
	if summaries[0].VariantID != "rs1" || summaries[0].MAF != 0.10 || summaries[0].NSurrogates != 2 {
		t.Errorf("summaries[0] = %+v, want {rs1 0.10 2}", summaries[0])
	}
	if summaries[1].VariantID != "rs5" || summaries[1].MAF != 0.25 || summaries[1].NSurrogates != 1 {
		t.Errorf("summaries[1] = %+v, want {rs5 0.25 1}", summaries[1])
	}
}

func TestIterateHeaderNameColumns(t *testing.T) {
	input := `index_id ld_id maf r2
rs1 rs2 0.1 0.9
`
	cfg := Config{
		HasHeader: true,
		IndexID:   Column{Name: "index_id"},
		LDID:      Column{Name: "ld_id"},
		MAF:       Column{Name: "maf"},
		R2:        Column{Name: "r2"},
	}

	var pairs []LDPair
	err := Iterate(strings.NewReader(input), cfg, 0.5,
		func(p LDPair) { pairs = append(pairs, p) },
		func(IndexVariantSummary) {},
		func(InvalidLine) {},
	)
	if err != nil {
		t.Fatalf("Iterate: %v", err)
	}
	if len(pairs) != 1 || pairs[0].LDID != "rs2" {
		t.Errorf("pairs = %v, want [{rs1 rs2 0.1 0.9}]", pairs)
	}
}

func TestIterateInvalidRowsSkipped(t *testing.T) {
	input := `rs1 rs2 0.1 0.9
rs1 rs3 bad 0.9
rs1 rs4 0.9 0.9
rs1 rs5 0.1 2.0
`
	var pairs []LDPair
	var invalid []InvalidLine
	err := Iterate(strings.NewReader(input), testConfig(), 0.5,
		func(p LDPair) { pairs = append(pairs, p) },
		func(IndexVariantSummary) {},
		func(l InvalidLine) { invalid = append(invalid, l) },
	)
	if err != nil {
		t.Fatalf("Iterate: %v", err)
	}
	if len(invalid) != 3 {
		t.Fatalf("invalid = %v, want 3 rows skipped (bad maf, out-of-range maf, out-of-range r2)", invalid)
	}
	if len(pairs) != 1 {
		t.Fatalf("pairs = %v, want 1 valid pair", pairs)
	}
}

func TestIterateNonContiguousIndexID(t *testing.T) {
	input := `rs1 rs2 0.1 0.9
rs5 rs6 0.2 0.9
rs1 rs3 0.1 0.9
`
	var invalid []InvalidLine
	var summaries []IndexVariantSummary
	err := Iterate(strings.NewReader(input), testConfig(), 0.5,
		func(LDPair) {},
		func(s IndexVariantSummary) { summaries = append(summaries, s) },
		func(l InvalidLine) { invalid = append(invalid, l) },
	)
	if err != nil {
		t.Fatalf("Iterate: %v", err)
	}
	if len(invalid) != 1 {
		t.Fatalf("invalid = %v, want 1 non-contiguous row flagged", invalid)
	}
	if len(summaries) != 2 {
		t.Fatalf("summaries = %v, want 2 (rs1, rs5), re-occurrence of rs1 must not re-open it", summaries)
	}
}
