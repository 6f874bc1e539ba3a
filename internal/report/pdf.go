package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/go-pdf/fpdf"

	"hackathon/internal/apperr"
	"hackathon/internal/candidate"
	"hackathon/internal/media"
)

const (
	photoEdgePx = 160
	photoEdgeMM = 28.0
)

// SquadsPDF renders the squads of one hackathon with member names, skills and
// photos as an A4 document.
func (s *Service) SquadsPDF(ctx context.Context, hackathonID int64) ([]byte, error) {
	squads, err := s.squads.List(ctx, &hackathonID)
	if err != nil {
		return nil, err
	}
	if len(squads) == 0 {
		return nil, apperr.NotFound("No squads found")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Hackathon %d squads", hackathonID), true)
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 18)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	left, _, _, _ := pdf.GetMargins()

	for _, sq := range squads {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "BU", 18)
		pdf.CellFormat(0, 10, tr("Squad: "+sq.Name), "", 1, "L", false, 0, "")
		pdf.Ln(4)

		if len(sq.Members) == 0 {
			pdf.SetFont("Helvetica", "I", 12)
			pdf.CellFormat(0, 7, "No members.", "", 1, "L", false, 0, "")
			continue
		}
		for _, m := range sq.Members {
			pdf.SetFont("Helvetica", "", 12)
			pdf.CellFormat(0, 7, tr("Name: "+m.Name), "", 1, "L", false, 0, "")
			skills := m.Skills
			if skills == "" {
				skills = "N/A"
			}
			pdf.MultiCell(0, 6, tr("Skills: "+skills), "", "L", false)

			if ref := photoRef(m); ref != "" {
				if thumb, err := s.memberPhoto(ctx, ref); err != nil {
					log.Printf("squads pdf: photo for candidate %d: %v", m.ID, err)
					pdf.SetFont("Helvetica", "I", 10)
					pdf.CellFormat(0, 6, "Image could not be rendered.", "", 1, "L", false, 0, "")
				} else {
					name := fmt.Sprintf("candidate-%d", m.ID)
					opts := fpdf.ImageOptions{ImageType: "JPG"}
					pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(thumb))
					pdf.ImageOptions(name, left, 0, photoEdgeMM, photoEdgeMM, true, opts, 0, "")
				}
			}
			pdf.Ln(5)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render squads pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func photoRef(c candidate.Candidate) string {
	if c.PhotoURL != "" {
		return c.PhotoURL
	}
	return c.SelfiePath
}

func (s *Service) memberPhoto(ctx context.Context, ref string) ([]byte, error) {
	if s.assets == nil {
		return nil, errors.New("no asset loader configured")
	}
	data, err := s.assets.Load(ctx, ref)
	if err != nil {
		return nil, err
	}
	return media.Thumbnail(data, photoEdgePx)
}
