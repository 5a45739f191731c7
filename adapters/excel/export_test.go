package excel

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"godecide/domain/decision"
)

func attachedFrame(t *testing.T) *decision.Frame {
	t.Helper()
	f, err := decision.NewFlatFrame(decision.DefaultLimits(), decision.DefaultConfig(), []int{2, 3})
	if err != nil {
		t.Fatalf("frame construction failed: %v", err)
	}
	if err := f.AddStatement(decision.P, decision.Statement{Alt: 1, Node: 1, Lo: 0.7, Hi: 0.7}); err != nil {
		t.Fatalf("statement rejected: %v", err)
	}
	if err := f.Attach(); err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	return f
}

func TestExportWorkbook(t *testing.T) {
	f := attachedFrame(t)
	path := filepath.Join(t.TempDir(), "analysis.xlsx")
	if err := NewExporter().WriteFile(f, path); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	wb, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("workbook does not reopen: %v", err)
	}
	defer wb.Close()

	rows, err := wb.GetRows(nodeSheet)
	if err != nil {
		t.Fatalf("node sheet missing: %v", err)
	}
	// header plus one row per node
	if len(rows) != 1+5 {
		t.Errorf("node sheet has %d rows, want 6", len(rows))
	}
	if rows[0][0] != "Alt" || rows[0][7] != "Mass (local)" {
		t.Errorf("unexpected node header: %v", rows[0])
	}

	evalRows, err := wb.GetRows(evalSheet)
	if err != nil {
		t.Fatalf("evaluation sheet missing: %v", err)
	}
	if len(evalRows) != 1+2 {
		t.Errorf("evaluation sheet has %d rows, want 3", len(evalRows))
	}
}

func TestExportToWriter(t *testing.T) {
	f := attachedFrame(t)
	var buf bytes.Buffer
	if err := NewExporter().Write(f, &buf); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("workbook stream is empty")
	}
}

func TestExportDetachedFrameFails(t *testing.T) {
	f, err := decision.NewFlatFrame(decision.DefaultLimits(), decision.DefaultConfig(), []int{2, 2})
	if err != nil {
		t.Fatalf("frame construction failed: %v", err)
	}
	if err := NewExporter().WriteFile(f, filepath.Join(t.TempDir(), "x.xlsx")); err == nil {
		t.Error("export of a detached frame succeeded, want error")
	}
}
