package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRenderOrdersColumnsAndNeutralisesFormulas(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"student", "grade"},
		Rows: []map[string]string{
			{"student": "Ana", "grade": "A"},
			{"grade": "B", "student": "=HYPERLINK()"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "student,grade\nAna,A\n'=HYPERLINK(),B\n", string(out))
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFRender(t *testing.T) {
	out, err := NewPDFExporter().Render(Dataset{Headers: []string{"a"}, Rows: []map[string]string{{"a": "1"}}}, "grades")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderReceipt(t *testing.T) {
	out, err := NewPDFExporter().RenderReceipt(Receipt{
		SchoolName:    "Green Valley",
		StudentName:   "Ana",
		StudentID:     "stu-1",
		AcademicYear:  "2024-2025",
		Semester:      1,
		ReceiptNumber: "RCP-20240301-123456",
		TransactionID: "TXN-1709287200-AB12CD",
		Method:        "cash",
		Amount:        250,
		TotalAmount:   1000,
		TotalPaid:     250,
		Balance:       750,
		Status:        "partial",
		PaidAt:        time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = NewPDFExporter().RenderReceipt(Receipt{})
	assert.Error(t, err)
}
