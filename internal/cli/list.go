package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/sigsmuggle/pkg/types"
)

// blockSummary and signatureSummary describe rows without their content.
type blockSummary struct {
	ID   types.BlockID `json:"id"`
	Tag  int64         `json:"tag"`
	Path string        `json:"path"`
	Size int           `json:"size"`
}

type signatureSummary struct {
	RecordID int64          `json:"record_id"`
	Path     string         `json:"path"`
	Size     int            `json:"size"`
	Blocks   []blockSummary `json:"blocks"`
}

func summarize(sig types.Signature) signatureSummary {
	out := signatureSummary{
		RecordID: sig.RecordID,
		Path:     sig.Path,
		Size:     len(sig.Content),
		Blocks:   make([]blockSummary, 0, len(sig.Blocks)),
	}
	for _, b := range sig.Blocks {
		out.Blocks = append(out.Blocks, blockSummary{ID: b.ID, Tag: b.Tag, Path: b.Path, Size: len(b.Content)})
	}
	return out
}

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the signatures of the profile",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(false)
			if err != nil {
				return err
			}
			defer s.Close()

			sigs, err := s.ReadAllSignatures(cmd.Context())
			if err != nil {
				return err
			}

			summaries := make([]signatureSummary, 0, len(sigs))
			for _, sig := range sigs {
				summaries = append(summaries, summarize(sig))
			}
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), summaries)
			}
			for _, sum := range summaries {
				fmt.Fprintln(cmd.OutOrStdout(), formatSignature(sum))
			}
			return nil
		},
	}
}

// formatSignature renders one summary as
// "<Signature 3: Signatures/7/AB...olk15Signature Blocks: [...]>".
func formatSignature(sum signatureSummary) string {
	blocks := make([]string, 0, len(sum.Blocks))
	for _, b := range sum.Blocks {
		blocks = append(blocks, fmt.Sprintf("<Block %s (%d): %s>", b.ID, b.Tag, b.Path))
	}
	return fmt.Sprintf("<Signature %d: %s Blocks: [%s]>", sum.RecordID, sum.Path, strings.Join(blocks, ", "))
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
