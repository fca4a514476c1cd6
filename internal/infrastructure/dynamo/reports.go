package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/taskpulse-api/internal/domain"
)

// ReportRepo stores daily reports. PK: report_id.
// A second table (daysTable, PK employee_id + SK report_date) holds one guard
// item per employee and day; it is written and removed in the same
// transaction as the report so uniqueness holds under concurrent creates.
type ReportRepo struct {
	client    *dynamodb.Client
	tableName string
	daysTable string
}

func NewReportRepo(client *dynamodb.Client, tableName, daysTable string) *ReportRepo {
	return &ReportRepo{client: client, tableName: tableName, daysTable: daysTable}
}

type reportDay struct {
	EmployeeID string `dynamodbav:"employee_id"`
	ReportDate string `dynamodbav:"report_date"`
	ReportID   string `dynamodbav:"report_id"`
}

// Create writes the report and its day guard atomically.
// Returns ErrConflict when the employee already has a report for that day.
func (r *ReportRepo) Create(ctx context.Context, rep *domain.Report) error {
	item, err := attributevalue.MarshalMap(rep)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	guard, err := attributevalue.MarshalMap(reportDay{
		EmployeeID: rep.EmployeeID,
		ReportDate: rep.ReportDate,
		ReportID:   rep.ReportID,
	})
	if err != nil {
		return fmt.Errorf("marshal report day: %w", err)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.daysTable),
				Item:                guard,
				ConditionExpression: aws.String("attribute_not_exists(employee_id)"),
			}},
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(report_id)"),
			}},
		},
	})
	if isTxConditionFailed(err) {
		return fmt.Errorf("report already exists for %s: %w", rep.ReportDate, domain.ErrConflict)
	}
	return err
}

func (r *ReportRepo) Get(ctx context.Context, reportID string) (*domain.Report, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("report_id", reportID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("report not found: %w", domain.ErrNotFound)
	}
	var rep domain.Report
	if err := attributevalue.UnmarshalMap(out.Item, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

// GetByEmployeeDay resolves the report an employee filed for day through the guard table.
func (r *ReportRepo) GetByEmployeeDay(ctx context.Context, employeeID, day string) (*domain.Report, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.daysTable),
		Key:            compositeKey(fieldEmployeeID, employeeID, fieldReportDate, day),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("report not found: %w", domain.ErrNotFound)
	}
	var guard reportDay
	if err := attributevalue.UnmarshalMap(out.Item, &guard); err != nil {
		return nil, err
	}
	return r.Get(ctx, guard.ReportID)
}

// Update applies a partial SET and returns the report as stored afterwards.
// The caller stamps updated_at.
func (r *ReportRepo) Update(ctx context.Context, reportID string, updates map[string]interface{}) (*domain.Report, error) {
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return nil, err
	}
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("report_id", reportID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(report_id)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if isConditionFailed(err) {
		return nil, fmt.Errorf("report not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var rep domain.Report
	if err := attributevalue.UnmarshalMap(out.Attributes, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

// Delete removes the report and frees its (employee, day) slot.
func (r *ReportRepo) Delete(ctx context.Context, rep *domain.Report) error {
	_, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{
				TableName:           aws.String(r.tableName),
				Key:                 strKey("report_id", rep.ReportID),
				ConditionExpression: aws.String("attribute_exists(report_id)"),
			}},
			{Delete: &types.Delete{
				TableName: aws.String(r.daysTable),
				Key:       compositeKey(fieldEmployeeID, rep.EmployeeID, fieldReportDate, rep.ReportDate),
			}},
		},
	})
	if isTxConditionFailed(err) {
		return fmt.Errorf("report not found: %w", domain.ErrNotFound)
	}
	return err
}

// List returns one page of reports matching f, newest day first when
// f.EmployeeID is set. The returned cursor is empty on the last page.
func (r *ReportRepo) List(ctx context.Context, f domain.ReportFilter) ([]domain.Report, string, error) {
	start, err := decodeCursor(f.Cursor)
	if err != nil {
		return nil, "", err
	}
	q := buildReportQuery(f)

	var items []map[string]types.AttributeValue
	var lek map[string]types.AttributeValue
	if f.EmployeeID != "" {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			IndexName:                 aws.String(indexReportsEmployee),
			KeyConditionExpression:    aws.String(q.KeyCond),
			FilterExpression:          optional(q.Filter),
			ExpressionAttributeNames:  q.Names,
			ExpressionAttributeValues: q.Values,
			ScanIndexForward:          aws.Bool(false),
			Limit:                     aws.Int32(f.Limit),
			ExclusiveStartKey:         start,
		})
		if err != nil {
			return nil, "", err
		}
		items, lek = out.Items, out.LastEvaluatedKey
	} else {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(r.tableName),
			FilterExpression:          optional(q.Filter),
			ExpressionAttributeNames:  q.Names,
			ExpressionAttributeValues: q.Values,
			Limit:                     aws.Int32(f.Limit),
			ExclusiveStartKey:         start,
		})
		if err != nil {
			return nil, "", err
		}
		items, lek = out.Items, out.LastEvaluatedKey
	}

	reports := []domain.Report{}
	if err := attributevalue.UnmarshalListOfMaps(items, &reports); err != nil {
		return nil, "", err
	}
	return reports, encodeCursor(lek), nil
}

// ListRange reads every report dated within [from, to], following all pages.
func (r *ReportRepo) ListRange(ctx context.Context, from, to string) ([]domain.Report, error) {
	q := buildReportQuery(domain.ReportFilter{From: from, To: to})
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          optional(q.Filter),
		ExpressionAttributeNames:  q.Names,
		ExpressionAttributeValues: q.Values,
	})
	reports := []domain.Report{}
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var batch []domain.Report
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		reports = append(reports, batch...)
	}
	return reports, nil
}

type reportQuery struct {
	KeyCond string
	Filter  string
	Names   map[string]string
	Values  map[string]types.AttributeValue
}

// buildReportQuery translates a filter into expressions. With an employee the
// date bounds go into the GSI key condition; without one they become filters.
func buildReportQuery(f domain.ReportFilter) reportQuery {
	q := reportQuery{
		Names:  map[string]string{},
		Values: map[string]types.AttributeValue{},
	}
	str := func(placeholder, v string) {
		q.Values[placeholder] = &types.AttributeValueMemberS{Value: v}
	}

	var dateCond string
	if f.From != "" || f.To != "" {
		q.Names["#day"] = fieldReportDate
		switch {
		case f.From != "" && f.To != "":
			dateCond = "#day BETWEEN :from AND :to"
			str(":from", f.From)
			str(":to", f.To)
		case f.From != "":
			dateCond = "#day >= :from"
			str(":from", f.From)
		default:
			dateCond = "#day <= :to"
			str(":to", f.To)
		}
	}

	var filters []string
	if f.EmployeeID != "" {
		q.Names["#emp"] = fieldEmployeeID
		str(":emp", f.EmployeeID)
		q.KeyCond = "#emp = :emp"
		if dateCond != "" {
			q.KeyCond += " AND " + dateCond
		}
	} else if dateCond != "" {
		filters = append(filters, dateCond)
	}
	if f.Status != "" {
		q.Names["#status"] = fieldStatus
		str(":status", f.Status)
		filters = append(filters, "#status = :status")
	}
	q.Filter = strings.Join(filters, " AND ")

	if len(q.Names) == 0 {
		q.Names = nil
	}
	if len(q.Values) == 0 {
		q.Values = nil
	}
	return q
}

func optional(expr string) *string {
	if expr == "" {
		return nil
	}
	return aws.String(expr)
}

// isTxConditionFailed reports whether a transaction was cancelled because one
// of its condition expressions did not hold.
func isTxConditionFailed(err error) bool {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return false
	}
	for _, reason := range tce.CancellationReasons {
		if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}
