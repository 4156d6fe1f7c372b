package aws_client

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
)

// NewR2Client creates an S3Client configured for Cloudflare R2
func NewR2Client(accountID, accessKeyID, accessKeySecret string) S3Client {
	return NewS3Client(&aws.Config{
		Endpoint:    aws.String("https://" + accountID + ".r2.cloudflarestorage.com"),
		Region:      aws.String("auto"), // R2 uses "auto" region
		Credentials: credentials.NewStaticCredentials(accessKeyID, accessKeySecret, ""),
		// This is important for R2 compatibility
		S3ForcePathStyle: aws.Bool(true),
	})
}
