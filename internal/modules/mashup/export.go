package mashup

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/epoch-iith/qmashup/internal/config"
	"github.com/epoch-iith/qmashup/internal/modules/quantum"
)

// ExportContentType is the media type of exported run artifacts
const ExportContentType = "application/msgpack"

// Artifact is the document uploaded for an exported run
type Artifact struct {
	Run       *Run      `msgpack:"run"`
	Steps     int       `msgpack:"steps"`
	Nodes     int       `msgpack:"nodes"`
	Bio       []float64 `msgpack:"bio"`  // Row-major
	Base      []float64 `msgpack:"base"` // Row-major
	Generator string    `msgpack:"generator"`
}

// NewArtifact bundles a run with both of its trajectories
func NewArtifact(run *Run, bio, base *quantum.Trajectory) *Artifact {
	steps, nodes := bio.Dims()
	return &Artifact{
		Run:       run,
		Steps:     steps,
		Nodes:     nodes,
		Bio:       bio.RawData(),
		Base:      base.RawData(),
		Generator: "qmashup",
	}
}

// Uploader is the part of the S3 transfer manager the exporter uses
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Exporter uploads run artifacts to an S3-compatible bucket
type S3Exporter struct {
	uploader Uploader
	bucket   string
	prefix   string
	log      zerolog.Logger
}

// NewS3Exporter creates an exporter over an existing uploader
func NewS3Exporter(uploader Uploader, bucket string, log zerolog.Logger) *S3Exporter {
	return &S3Exporter{
		uploader: uploader,
		bucket:   bucket,
		prefix:   "runs",
		log:      log.With().Str("component", "s3_exporter").Logger(),
	}
}

// NewS3ExporterFromConfig builds the S3 client from the export settings.
// Static credentials are used when both keys are set, otherwise the default
// AWS credential chain. A custom endpoint switches to path-style addressing.
func NewS3ExporterFromConfig(ctx context.Context, cfg config.ExportConfig, log zerolog.Logger) (*S3Exporter, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3Exporter(manager.NewUploader(client), cfg.Bucket, log), nil
}

// Key returns the object key for a run
func (e *S3Exporter) Key(run *Run) string {
	return path.Join(e.prefix, run.CreatedAt.Format("2006/01/02"), run.ID+".msgpack")
}

// Export uploads the artifact and returns its object key
func (e *S3Exporter) Export(ctx context.Context, artifact *Artifact) (string, error) {
	body, err := msgpack.Marshal(artifact)
	if err != nil {
		return "", fmt.Errorf("failed to encode artifact: %w", err)
	}

	key := e.Key(artifact.Run)
	out, err := e.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(ExportContentType),
		Metadata: map[string]string{
			"run-id":  artifact.Run.ID,
			"variant": artifact.Run.Params.Variant,
		},
	})
	if err != nil {
		exportsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("failed to upload run %s: %w", artifact.Run.ID, err)
	}
	exportsTotal.WithLabelValues("ok").Inc()

	e.log.Info().
		Str("run_id", artifact.Run.ID).
		Str("bucket", e.bucket).
		Str("key", key).
		Str("location", out.Location).
		Int("bytes", len(body)).
		Msg("Run exported")

	return key, nil
}
