package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/asarangaram/clmediakit"
)

type matchOutput struct {
	ID          uint64  `json:"id"`
	Distance    float32 `json:"distance"`
	Fingerprint string  `json:"fingerprint,omitempty"`
}

type statsOutput struct {
	Path           string  `json:"path"`
	Dimension      int     `json:"dimension"`
	Capacity       int     `json:"capacity"`
	M              int     `json:"m"`
	EFConstruction int     `json:"ef_construction"`
	EFSearch       int     `json:"ef_search"`
	Live           int     `json:"live"`
	Tombstoned     int     `json:"tombstoned"`
	TombstoneRatio float64 `json:"tombstone_ratio"`
	MaxLevel       int     `json:"max_level"`
	EntryID        *uint64 `json:"entry_id,omitempty"`
	PersistMode    string  `json:"persist_mode"`
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printMatches(w io.Writer, asJSON bool, matches []matchOutput) error {
	if asJSON {
		if matches == nil {
			matches = []matchOutput{}
		}
		return printJSON(w, matches)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDISTANCE\tFINGERPRINT")
	for _, m := range matches {
		fmt.Fprintf(tw, "%d\t%g\t%s\n", m.ID, m.Distance, m.Fingerprint)
	}
	return tw.Flush()
}

func printStats(w io.Writer, asJSON bool, st clmediakit.Stats) error {
	out := statsOutput{
		Path:           st.Path,
		Dimension:      st.Dimension,
		Capacity:       st.Capacity,
		M:              st.M,
		EFConstruction: st.EFConstruction,
		EFSearch:       st.EFSearch,
		Live:           st.Live,
		Tombstoned:     st.Tombstoned,
		TombstoneRatio: st.TombstoneRatio(),
		MaxLevel:       st.MaxLevel,
		PersistMode:    st.PersistMode,
	}
	if st.HasEntry {
		id := st.EntryID
		out.EntryID = &id
	}
	if asJSON {
		return printJSON(w, out)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "path:\t%s\n", out.Path)
	fmt.Fprintf(tw, "dimension:\t%d\n", out.Dimension)
	fmt.Fprintf(tw, "capacity:\t%d\n", out.Capacity)
	fmt.Fprintf(tw, "m:\t%d\n", out.M)
	fmt.Fprintf(tw, "ef_construction:\t%d\n", out.EFConstruction)
	fmt.Fprintf(tw, "ef_search:\t%d\n", out.EFSearch)
	fmt.Fprintf(tw, "live:\t%d\n", out.Live)
	fmt.Fprintf(tw, "tombstoned:\t%d\n", out.Tombstoned)
	fmt.Fprintf(tw, "max_level:\t%d\n", out.MaxLevel)
	if out.EntryID != nil {
		fmt.Fprintf(tw, "entry_id:\t%d\n", *out.EntryID)
	}
	fmt.Fprintf(tw, "persist_mode:\t%s\n", out.PersistMode)
	return tw.Flush()
}
