package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/staff-attendance/internal/config"
	"github.com/kozaktomas/staff-attendance/internal/constants"
	"github.com/kozaktomas/staff-attendance/internal/encoder"
	"github.com/kozaktomas/staff-attendance/internal/facematch"
	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match <image>",
	Short: "Identify the staff member in a photo without marking attendance",
	Long: `Identify the staff member in a photo by matching its face encoding
against the enrolled gallery. Nothing is written to the attendance log.

Examples:
  # Match with the configured threshold
  staff-attendance match probe.jpg

  # Stricter matching and the five closest staff
  staff-attendance match probe.jpg --threshold 0.7 --top 5

  # Save the photo with the detected face outlined
  staff-attendance match probe.jpg --annotate probe-annotated.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().Float64("threshold", -1, "Confidence threshold in [0,1] (default from CONFIDENCE_THRESHOLD)")
	matchCmd.Flags().Int("top", constants.NearestSearchLimit, "Number of closest staff to list")
	matchCmd.Flags().String("annotate", "", "Write the photo with the face box and match label to this path")
	matchCmd.Flags().Bool("json", false, "Output as JSON")
}

// MatchOutput is the match command result
type MatchOutput struct {
	Image      string                  `json:"image"`
	Threshold  float64                 `json:"threshold"`
	Quality    facematch.QualityReport `json:"quality"`
	Match      facematch.MatchResult   `json:"match"`
	Name       string                  `json:"name,omitempty"`
	Candidates []facematch.Candidate   `json:"candidates"`
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()
	jsonOutput := mustGetBool(cmd, "json")
	top := mustGetInt(cmd, "top")
	annotatePath := mustGetString(cmd, "annotate")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	s, err := connectPostgres(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	service, err := newService(ctx, cfg, s)
	if err != nil {
		return err
	}
	if threshold := mustGetFloat64(cmd, "threshold"); threshold >= 0 {
		service.Matcher().SetConfidenceThreshold(threshold)
	}

	rec, err := service.Recognize(ctx, data)
	if err != nil {
		return fmt.Errorf("recognition failed: %w", err)
	}

	out := MatchOutput{
		Image:      args[0],
		Threshold:  service.Matcher().ConfidenceThreshold(),
		Quality:    rec.Quality,
		Match:      rec.Match,
		Candidates: []facematch.Candidate{},
	}
	if rec.Identity != nil {
		out.Name = rec.Identity.Name
	}
	if rec.Quality.OK {
		ranked, err := service.Matcher().Rank(rec.Encoding)
		if err != nil {
			return fmt.Errorf("ranking failed: %w", err)
		}
		if top > 0 && len(ranked) > top {
			ranked = ranked[:top]
		}
		out.Candidates = ranked
	}

	if annotatePath != "" && rec.BBox != nil {
		label := facematch.UnknownIdentity
		if rec.Match.IsRecognized {
			label = fmt.Sprintf("%s %s", rec.Match.IdentityID, out.Name)
		}
		bbox, err := originalBBox(data, rec.BBox, cfg.Encoder.MaxImageSize)
		if err != nil {
			return err
		}
		annotated, err := encoder.AnnotateFace(data, bbox, label, rec.Match.IsRecognized)
		if err != nil {
			return fmt.Errorf("failed to annotate: %w", err)
		}
		if err := os.WriteFile(annotatePath, annotated, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", annotatePath, err)
		}
	}

	if jsonOutput {
		return outputJSON(out)
	}
	printMatch(out)
	if annotatePath != "" && rec.BBox != nil {
		fmt.Printf("\nAnnotated photo written to %s\n", annotatePath)
	}
	return nil
}

// originalBBox maps a bbox from the downsized encoder input back onto the original photo.
func originalBBox(data []byte, bbox []float64, maxSize int) ([]float64, error) {
	w, h, err := encoder.DecodeDimensions(data)
	if err != nil {
		return nil, err
	}
	longest := max(w, h)
	if maxSize <= 0 || longest <= maxSize {
		return bbox, nil
	}
	scale := float64(longest) / float64(maxSize)
	scaled := make([]float64, len(bbox))
	for i, v := range bbox {
		scaled[i] = v * scale
	}
	return scaled, nil
}

func printMatch(out MatchOutput) {
	fmt.Printf("Image:     %s\n", out.Image)
	fmt.Printf("Threshold: %.2f (max distance %.2f)\n", out.Threshold, 1-out.Threshold)
	if !out.Quality.OK {
		fmt.Printf("Rejected:  %s\n", out.Quality.Reason)
		return
	}
	if out.Match.IsRecognized {
		fmt.Printf("Match:     %s %s (confidence %.1f%%)\n",
			out.Match.IdentityID, out.Name, facematch.ConfidencePercent(out.Match.Confidence))
	} else {
		fmt.Printf("Match:     unknown\n")
	}

	if len(out.Candidates) == 0 {
		fmt.Println("\nGallery is empty.")
		return
	}
	fmt.Println("\nClosest staff:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tSTAFF ID\tDISTANCE\tCONFIDENCE")
	for i, c := range out.Candidates {
		fmt.Fprintf(w, "%d\t%s\t%.4f\t%.1f%%\n", i+1, c.IdentityID, c.Distance, facematch.ConfidencePercent(c.Confidence))
	}
	w.Flush()
}
