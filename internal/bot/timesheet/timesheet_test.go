package timesheet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestRequiresTool(t *testing.T) {
	require.False(t, Row{}.RequiresTool())
	require.False(t, Row{Tool: strptr("")}.RequiresTool())
	require.True(t, Row{Tool: strptr("Lathe")}.RequiresTool())
}

func TestRequiresChargeCode(t *testing.T) {
	// a charge code only applies when a tool does
	require.False(t, Row{ChargeCode: strptr("CC-42")}.RequiresChargeCode())
	require.False(t, Row{Tool: strptr("Lathe")}.RequiresChargeCode())
	require.False(t, Row{Tool: strptr("Lathe"), ChargeCode: strptr("")}.RequiresChargeCode())
	require.True(t, Row{Tool: strptr("Lathe"), ChargeCode: strptr("CC-42")}.RequiresChargeCode())
}

func TestRedactEmail(t *testing.T) {
	require.Equal(t, "u***@example.com", RedactEmail("user@example.com"))
	require.Equal(t, "***", RedactEmail("nodomain"))
	require.Equal(t, "***", RedactEmail(""))
}
