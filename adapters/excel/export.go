// Package excel exports an attached frame's analysis as a workbook: one
// sheet of per-node derived state and one sheet of per-alternative
// evaluation results.
package excel

import (
	"fmt"
	"io"
	"log"

	"github.com/xuri/excelize/v2"

	"godecide/domain/decision"
	"godecide/internal/evaluate"
	"godecide/internal/moments"
)

const (
	nodeSheet = "Nodes"
	evalSheet = "Evaluation"
)

// Exporter writes analysis workbooks
type Exporter struct{}

// NewExporter creates a workbook exporter
func NewExporter() *Exporter {
	return &Exporter{}
}

// Write renders the frame's derived state and evaluation into an xlsx
// workbook on w. The frame must be attached.
func (e *Exporter) Write(f *decision.Frame, w io.Writer) error {
	wb := excelize.NewFile()
	defer wb.Close()

	wb.SetSheetName("Sheet1", nodeSheet)
	if _, err := wb.NewSheet(evalSheet); err != nil {
		return fmt.Errorf("failed to create evaluation sheet: %w", err)
	}

	if err := e.writeNodes(wb, f); err != nil {
		return err
	}
	if err := e.writeEvaluation(wb, f); err != nil {
		return err
	}

	log.Printf("[Exporter] writing workbook for frame %s (%d nodes, %d alternatives)",
		f.ID(), f.Index().TotalNodes(), f.NumAlts())
	return wb.Write(w)
}

// WriteFile renders the workbook into a file on disk
func (e *Exporter) WriteFile(f *decision.Frame, path string) error {
	wb := excelize.NewFile()
	defer wb.Close()

	wb.SetSheetName("Sheet1", nodeSheet)
	if _, err := wb.NewSheet(evalSheet); err != nil {
		return fmt.Errorf("failed to create evaluation sheet: %w", err)
	}
	if err := e.writeNodes(wb, f); err != nil {
		return err
	}
	if err := e.writeEvaluation(wb, f); err != nil {
		return err
	}
	return wb.SaveAs(path)
}

func (e *Exporter) writeNodes(wb *excelize.File, f *decision.Frame) error {
	headers := []interface{}{
		"Alt", "Node", "Kind",
		"Box Lo", "Box Hi", "Hull Lo", "Hull Hi",
		"Mass (local)", "Mass (global)",
		"Value Lo", "Value Hi", "Focal value",
	}
	if err := setRow(wb, nodeSheet, 1, headers); err != nil {
		return err
	}

	box, err := f.Box(decision.P)
	if err != nil {
		return err
	}

	row := 2
	for alt := 1; alt <= f.NumAlts(); alt++ {
		topo, err := f.Index().Alt(alt)
		if err != nil {
			return err
		}
		for pos := 1; pos <= topo.Total(); pos++ {
			hullL, _, err := f.Hull(alt, pos)
			if err != nil {
				return err
			}
			massL, massG, err := f.MassPoint(alt, pos)
			if err != nil {
				return err
			}
			seq, err := f.Index().Seq(alt, pos)
			if err != nil {
				return err
			}
			cells := []interface{}{
				alt, pos, string(topo.Kind(pos)),
				box[seq-1].Lo, box[seq-1].Hi, hullL.Lo, hullL.Hi,
				massL, massG,
			}
			if topo.IsReal(pos) {
				vb, err := f.ValueBounds(alt, pos)
				if err != nil {
					return err
				}
				focal, err := f.ValueMassPoint(alt, pos)
				if err != nil {
					return err
				}
				cells = append(cells, vb.Lo, vb.Hi, focal)
			}
			if err := setRow(wb, nodeSheet, row, cells); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func (e *Exporter) writeEvaluation(wb *excelize.File, f *decision.Frame) error {
	headers := []interface{}{
		"Alt", "Omega",
		"Psi Min", "Psi Mid", "Psi Max",
		"Gamma Min", "Gamma Mid", "Gamma Max",
		"Mean", "Std dev", "Third moment",
	}
	if err := setRow(wb, evalSheet, 1, headers); err != nil {
		return err
	}

	for alt := 1; alt <= f.NumAlts(); alt++ {
		omega, err := evaluate.Omega(f, alt)
		if err != nil {
			return err
		}
		psi, err := evaluate.Psi(f, alt)
		if err != nil {
			return err
		}
		gamma, err := evaluate.Gamma(f, alt)
		if err != nil {
			return err
		}
		moment, err := moments.Compute(f, alt)
		if err != nil {
			return err
		}
		cells := []interface{}{
			alt, omega,
			psi.Min, psi.Mid, psi.Max,
			gamma.Min, gamma.Mid, gamma.Max,
			moment.Mean, moment.StdDev(), moment.ThirdMoment,
		}
		if err := setRow(wb, evalSheet, alt+1, cells); err != nil {
			return err
		}
	}
	return nil
}

// setRow writes one row of cells starting at column A
func setRow(wb *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return wb.SetSheetRow(sheet, cell, &cells)
}
