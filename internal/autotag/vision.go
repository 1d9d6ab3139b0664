package autotag

import (
	"context"
	"fmt"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/samber/lo"
	"google.golang.org/api/option"
)

const maxLabels = 20

type annotateFunc func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error)

// Vision labels images through the Cloud Vision label detection feature.
type Vision struct {
	annotate annotateFunc
	close    func() error
}

// NewVision dials the image annotator. credentialsFile may be empty to use
// application default credentials.
func NewVision(ctx context.Context, credentialsFile string) (*Vision, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init vision client: %w", err)
	}
	return &Vision{
		annotate: func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
			return client.BatchAnnotateImages(ctx, req)
		},
		close: client.Close,
	}, nil
}

// Labels runs label detection on the image at imageURL.
func (v *Vision) Labels(ctx context.Context, imageURL string) ([]Label, error) {
	resp, err := v.annotate(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image: &visionpb.Image{Source: &visionpb.ImageSource{ImageUri: imageURL}},
			Features: []*visionpb.Feature{{
				Type:       visionpb.Feature_LABEL_DETECTION,
				MaxResults: maxLabels,
			}},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("label detection: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return nil, nil
	}
	r := resp.GetResponses()[0]
	if e := r.GetError(); e != nil && e.GetCode() != 0 {
		return nil, fmt.Errorf("label detection: %s", e.GetMessage())
	}
	return lo.Map(r.GetLabelAnnotations(), func(a *visionpb.EntityAnnotation, _ int) Label {
		return Label{Description: a.GetDescription(), Score: a.GetScore()}
	}), nil
}

// Close releases the client connection.
func (v *Vision) Close() error {
	if v.close == nil {
		return nil
	}
	return v.close()
}
