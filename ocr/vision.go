package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"go.uber.org/zap"
)

const (
	DefaultTimeout = 420 * time.Second
	ocrBatchSize   = 2
)

type blobReader interface {
	List(ctx context.Context, bucket, prefix string) ([]string, error)
	Download(ctx context.Context, bucket, name string) ([]byte, error)
}

// Client runs document text detection on PDFs already in the bucket. The
// Vision API writes paginated JSON results next to the source object under
// a "<name>-ocr-output/" prefix; callers are responsible for deleting those
// once the text has been consumed.
type Client struct {
	annotator *vision.ImageAnnotatorClient
	blobs     blobReader
	timeout   time.Duration
}

func NewClient(annotator *vision.ImageAnnotatorClient, blobs blobReader, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		annotator: annotator,
		blobs:     blobs,
		timeout:   timeout,
	}
}

// OutputPrefix is the bucket prefix the OCR results for an object land in.
func OutputPrefix(name string) string {
	return name + "-ocr-output/"
}

// ExtractText submits the object for async document text detection, waits for
// completion within the configured timeout, and concatenates per-page text in
// blob listing order. Returns the full text and the result blob names so the
// caller can clean them up.
func (c *Client) ExtractText(ctx context.Context, bucket, name string) (string, []string, error) {
	sourceUri := fmt.Sprintf("gs://%s/%s", bucket, name)
	destinationUri := fmt.Sprintf("gs://%s/%s", bucket, OutputPrefix(name))

	request := &visionpb.AsyncBatchAnnotateFilesRequest{
		Requests: []*visionpb.AsyncAnnotateFileRequest{
			{
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
				InputConfig: &visionpb.InputConfig{
					GcsSource: &visionpb.GcsSource{Uri: sourceUri},
					MimeType:  "application/pdf",
				},
				OutputConfig: &visionpb.OutputConfig{
					GcsDestination: &visionpb.GcsDestination{Uri: destinationUri},
					BatchSize:      ocrBatchSize,
				},
			},
		},
	}

	operation, err := c.annotator.AsyncBatchAnnotateFiles(ctx, request)
	if err != nil {
		return "", nil, errors.New("failed to start OCR operation: " + err.Error())
	}

	logger.Info("Waiting for OCR operation", zap.String("source", sourceUri))

	waitCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, err = operation.Wait(waitCtx); err != nil {
		// On timeout the event source is expected to redeliver the
		// triggering event; no cleanup happens here.
		return "", nil, errors.New("OCR operation did not complete: " + err.Error())
	}

	return c.collectText(ctx, bucket, name)
}

// collectText reads the paginated result blobs written by the Vision API.
// Each blob has shape {responses: [{fullTextAnnotation: {text}}, ...]}.
func (c *Client) collectText(ctx context.Context, bucket, name string) (string, []string, error) {
	blobNames, err := c.blobs.List(ctx, bucket, OutputPrefix(name))
	if err != nil {
		return "", nil, err
	}

	var fullText strings.Builder
	var resultBlobs []string

	for _, blobName := range blobNames {
		if !strings.Contains(blobName, ".json") {
			continue
		}
		resultBlobs = append(resultBlobs, blobName)

		data, err := c.blobs.Download(ctx, bucket, blobName)
		if err != nil {
			return "", resultBlobs, err
		}

		var result annotateResult
		if err := json.Unmarshal(data, &result); err != nil {
			return "", resultBlobs, errors.New("failed to parse OCR result blob: " + err.Error())
		}

		for _, page := range result.Responses {
			fullText.WriteString(page.FullTextAnnotation.Text)
		}
	}

	return fullText.String(), resultBlobs, nil
}

type annotateResult struct {
	Responses []struct {
		FullTextAnnotation struct {
			Text string `json:"text"`
		} `json:"fullTextAnnotation"`
	} `json:"responses"`
}
