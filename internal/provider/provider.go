package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/emaland/spotinfer/internal/awsutil"
	"github.com/emaland/spotinfer/internal/datacrunch"
	"github.com/emaland/spotinfer/internal/offer"
)

const (
	DataCrunch = "datacrunch"
	AWS        = "aws"
)

var ErrMissingCredentials = errors.New("missing provider credentials")

const dataCrunchGuidance = `DataCrunch credentials not found. Provide them using one of:

  export DATACRUNCH_CLIENT_ID=...      Set credentials via environment variables
  export DATACRUNCH_CLIENT_SECRET=...
  .env in the working directory        Same variables, loaded at startup
  --client-id / --client-secret        Pass them on the command line`

// Source produces offers from a single provider.
type Source interface {
	Name() string
	FetchOffers(ctx context.Context) ([]offer.Offer, error)
}

// Options carries everything any source may need. Fields a source does not
// use are ignored.
type Options struct {
	ClientID     string
	ClientSecret string

	DataCrunchBaseURL string

	Region string
	AZ     string
	// Endpoint overrides the AWS base endpoint, e.g. LocalStack.
	Endpoint string
	// VerifyAWS checks AWS credentials through STS before returning the source.
	VerifyAWS bool

	Timeout time.Duration
	Logger  logrus.FieldLogger
}

func Names() []string { return []string{DataCrunch, AWS} }

// New builds the named source.
func New(ctx context.Context, name string, opts Options) (Source, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case DataCrunch:
		id, secret, err := DataCrunchCredentials(opts.ClientID, opts.ClientSecret)
		if err != nil {
			return nil, err
		}
		client := datacrunch.NewClient(id, secret, datacrunch.Options{
			BaseURL: opts.DataCrunchBaseURL,
			Timeout: opts.Timeout,
			Logger:  log.WithField("provider", DataCrunch),
		})
		return datacrunch.NewSource(client), nil

	case AWS:
		cfg, err := awsutil.NewConfig(ctx, awsutil.ConfigOptions{
			Region:          opts.Region,
			AccessKeyID:     opts.ClientID,
			SecretAccessKey: opts.ClientSecret,
			BaseEndpoint:    opts.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		if opts.VerifyAWS {
			arn, err := awsutil.VerifyCredentials(ctx, cfg)
			if err != nil {
				return nil, fmt.Errorf("%w: %v\n\n%s", ErrMissingCredentials, err, awsutil.CredentialGuidance)
			}
			log.WithField("arn", arn).Debug("verified AWS credentials")
		}
		return awsutil.NewSource(ec2.NewFromConfig(cfg), opts.AZ, log.WithField("provider", AWS)), nil

	default:
		return nil, fmt.Errorf("unknown provider %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
}

// DataCrunchCredentials resolves the client id and secret. Explicit values
// win; otherwise DATACRUNCH_CLIENT_ID and DATACRUNCH_CLIENT_SECRET are read
// from the environment.
func DataCrunchCredentials(clientID, clientSecret string) (string, string, error) {
	if clientID == "" {
		clientID = os.Getenv("DATACRUNCH_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("DATACRUNCH_CLIENT_SECRET")
	}
	if clientID == "" || clientSecret == "" {
		return "", "", fmt.Errorf("%w\n\n%s", ErrMissingCredentials, dataCrunchGuidance)
	}
	return clientID, clientSecret, nil
}

// LoadDotEnv loads variables from the given files (default ".env") without
// overriding ones already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("reading %s: %w", f, err)
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}
