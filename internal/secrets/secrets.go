// Package secrets overlays configuration with JSON secrets kept in AWS Secrets Manager.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"go.uber.org/zap"

	"journalapi/internal/config"
)

// Secret names read by Apply.
const (
	DatabaseSecret = "journal-api/database"
	AWSSecret      = "journal-api/aws-credentials"
	BedrockSecret  = "journal-api/bedrock"
)

// Client is the subset of *secretsmanager.Client used here.
type Client interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type databaseSecret struct {
	Host     string      `json:"host"`
	Port     json.Number `json:"port"`
	DBName   string      `json:"dbname"`
	Username string      `json:"username"`
	Password string      `json:"password"`
}

type awsSecret struct {
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
}

type bedrockSecret struct {
	FlowARN   string `json:"flow_arn"`
	FlowAlias string `json:"flow_alias"`
}

// Apply overrides cfg with whatever secrets can be read. A missing or malformed secret is logged
// and leaves the environment-provided values untouched.
func Apply(ctx context.Context, client Client, cfg *config.AppConfig, logger *zap.Logger) {
	var db databaseSecret
	if fetch(ctx, client, DatabaseSecret, &db, logger) {
		setIf(&cfg.Database.Host, db.Host)
		setIf(&cfg.Database.Port, db.Port.String())
		setIf(&cfg.Database.Name, db.DBName)
		setIf(&cfg.Database.User, db.Username)
		setIf(&cfg.Database.Password, db.Password)
	}

	var creds awsSecret
	if fetch(ctx, client, AWSSecret, &creds, logger) {
		setIf(&cfg.AWS.AccessKeyID, creds.AccessKeyID)
		setIf(&cfg.AWS.SecretAccessKey, creds.SecretAccessKey)
		cfg.S3.AccessKey = cfg.AWS.AccessKeyID
		cfg.S3.SecretKey = cfg.AWS.SecretAccessKey
	}

	var br bedrockSecret
	if fetch(ctx, client, BedrockSecret, &br, logger) {
		setIf(&cfg.Flow.ARN, br.FlowARN)
		setIf(&cfg.Flow.Alias, br.FlowAlias)
	}
}

func fetch(ctx context.Context, client Client, name string, out any, logger *zap.Logger) bool {
	raw, err := get(ctx, client, name)
	if err != nil {
		logger.Warn("secret unavailable, using environment", zap.String("secret", name), zap.Error(err))
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		logger.Warn("secret is not valid json, using environment", zap.String("secret", name), zap.Error(err))
		return false
	}
	logger.Info("secret loaded", zap.String("secret", name))
	return true
}

func get(ctx context.Context, client Client, name string) (string, error) {
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return "", err
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", name)
	}
	return *out.SecretString, nil
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
