package dynamo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/taskpulse-api/internal/domain"
)

// OTPRepo stores the single active code per email. PK: email.
type OTPRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewOTPRepo(client *dynamodb.Client, tableName string) *OTPRepo {
	return &OTPRepo{client: client, tableName: tableName}
}

// Put writes rec, replacing whatever code the email had before.
func (r *OTPRepo) Put(ctx context.Context, rec *domain.OTPRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal otp: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *OTPRepo) Get(ctx context.Context, email string) (*domain.OTPRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("email", email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("otp not found: %w", domain.ErrNotFound)
	}
	var rec domain.OTPRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// MarkUsed consumes the code. It succeeds only while the stored record still
// carries code and is unused, so two concurrent verifications cannot both win.
func (r *OTPRepo) MarkUsed(ctx context.Context, email, code string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("email", email),
		UpdateExpression:    aws.String("SET #used = :t"),
		ConditionExpression: aws.String("attribute_exists(email) AND #used = :f AND #code = :c"),
		ExpressionAttributeNames: map[string]string{
			"#used": "used",
			"#code": "code",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
			":f": &types.AttributeValueMemberBOOL{Value: false},
			":c": &types.AttributeValueMemberS{Value: code},
		},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("otp already consumed: %w", domain.ErrInvalidCode)
	}
	return err
}

// CountAttempt records one verification attempt against the code that was
// issued. It fails with ErrInvalidCode once maxAttempts is reached or when the
// record has been superseded by a newer code.
func (r *OTPRepo) CountAttempt(ctx context.Context, email, issuedCode string, maxAttempts int) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("email", email),
		UpdateExpression:    aws.String("ADD #attempts :one"),
		ConditionExpression: aws.String("#code = :c AND (attribute_not_exists(#attempts) OR #attempts < :max)"),
		ExpressionAttributeNames: map[string]string{
			"#attempts": "attempts",
			"#code":     "code",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
			":c":   &types.AttributeValueMemberS{Value: issuedCode},
			":max": &types.AttributeValueMemberN{Value: strconv.Itoa(maxAttempts)},
		},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("otp attempts exhausted: %w", domain.ErrInvalidCode)
	}
	return err
}

// DeleteExpired removes rec only while it is still the stored record, so a
// code issued after rec was read survives.
func (r *OTPRepo) DeleteExpired(ctx context.Context, rec *domain.OTPRecord) error {
	expires, err := attributevalue.Marshal(rec.ExpiresAt)
	if err != nil {
		return fmt.Errorf("marshal expiry: %w", err)
	}
	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("email", rec.Email),
		ConditionExpression: aws.String("#code = :c AND #exp = :e"),
		ExpressionAttributeNames: map[string]string{
			"#code": "code",
			"#exp":  "expires_at",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": &types.AttributeValueMemberS{Value: rec.Code},
			":e": expires,
		},
	})
	if isConditionFailed(err) {
		return nil
	}
	return err
}
