package dynamo

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskpulse-api/internal/domain"
)

func TestBuildUpdateExpr_SingleField(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{"name": "alice"})
	require.NoError(t, err)
	assert.Equal(t, "SET #f0 = :v0", ue.Expr)
	assert.Equal(t, map[string]string{"#f0": "name"}, ue.Names)
	_, ok := ue.Values[":v0"]
	assert.True(t, ok)
}

func TestBuildUpdateExpr_MultipleFields_Deterministic(t *testing.T) {
	updates := map[string]interface{}{
		"work_summary": "Shipped the export endpoint",
		"hours_worked": 7.5,
		"blockers":     "",
	}
	ue1, err := buildUpdateExpr(updates)
	require.NoError(t, err)
	ue2, err := buildUpdateExpr(updates)
	require.NoError(t, err)

	assert.Equal(t, ue1.Expr, ue2.Expr)
	assert.Equal(t, "blockers", ue1.Names["#f0"])
	assert.Equal(t, "hours_worked", ue1.Names["#f1"])
	assert.Equal(t, "work_summary", ue1.Names["#f2"])
	assert.Equal(t, "SET #f0 = :v0, #f1 = :v1, #f2 = :v2", ue1.Expr)
}

func TestBuildUpdateExpr_ValuesMarshalledCorrectly(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{
		"enable":     true,
		"updated_at": time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	boolVal, isBool := ue.Values[":v0"].(*types.AttributeValueMemberBOOL)
	require.True(t, isBool)
	assert.True(t, boolVal.Value)
	strVal, isStr := ue.Values[":v1"].(*types.AttributeValueMemberS)
	require.True(t, isStr)
	assert.Equal(t, "2026-03-10T08:00:00Z", strVal.Value)
}

func TestBuildUpdateExpr_EmptyMap_ReturnsError(t *testing.T) {
	_, err := buildUpdateExpr(map[string]interface{}{})
	assert.ErrorContains(t, err, "no fields to update")
}

func TestCursor_RoundTrip(t *testing.T) {
	lek := map[string]types.AttributeValue{
		"report_id":   &types.AttributeValueMemberS{Value: "01J0000000000000000000000A"},
		"employee_id": &types.AttributeValueMemberS{Value: "emp-1"},
		"report_date": &types.AttributeValueMemberS{Value: "2026-03-10"},
	}
	cursor := encodeCursor(lek)
	require.NotEmpty(t, cursor)

	back, err := decodeCursor(cursor)
	require.NoError(t, err)
	assert.Equal(t, lek, back)
}

func TestCursor_EmptyAndInvalid(t *testing.T) {
	assert.Equal(t, "", encodeCursor(nil))

	key, err := decodeCursor("")
	assert.NoError(t, err)
	assert.Nil(t, key)

	_, err = decodeCursor("%%%not-base64")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestBuildReportQuery_EmployeeWithRangeAndStatus(t *testing.T) {
	q := buildReportQuery(domain.ReportFilter{
		EmployeeID: "emp-1", From: "2026-03-01", To: "2026-03-31", Status: "Reviewed",
	})
	assert.Equal(t, "#emp = :emp AND #day BETWEEN :from AND :to", q.KeyCond)
	assert.Equal(t, "#status = :status", q.Filter)
	assert.Equal(t, "status", q.Names["#status"])
	assert.Len(t, q.Values, 4)
}

func TestBuildReportQuery_ScanFilters(t *testing.T) {
	q := buildReportQuery(domain.ReportFilter{From: "2026-03-01"})
	assert.Empty(t, q.KeyCond)
	assert.Equal(t, "#day >= :from", q.Filter)

	q = buildReportQuery(domain.ReportFilter{To: "2026-03-31", Status: "Pending"})
	assert.Equal(t, "#day <= :to AND #status = :status", q.Filter)

	q = buildReportQuery(domain.ReportFilter{})
	assert.Empty(t, q.Filter)
	assert.Nil(t, q.Names)
	assert.Nil(t, q.Values)
}

func TestIsTxConditionFailed(t *testing.T) {
	tce := &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("None")},
			{Code: aws.String("ConditionalCheckFailed")},
		},
	}
	assert.True(t, isTxConditionFailed(fmt.Errorf("wrapped: %w", tce)))

	throttled := &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{{Code: aws.String("ThrottlingError")}},
	}
	assert.False(t, isTxConditionFailed(throttled))
	assert.False(t, isTxConditionFailed(errors.New("boom")))
}

func TestIsConditionFailed(t *testing.T) {
	assert.True(t, isConditionFailed(&types.ConditionalCheckFailedException{}))
	assert.False(t, isConditionFailed(errors.New("boom")))
	assert.False(t, isConditionFailed(nil))
}
