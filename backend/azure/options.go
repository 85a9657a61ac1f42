package azure

import (
	"fmt"
	"net/http"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/hashicorp/go-retryablehttp"
)

// Options contains options necessary for the azure gateway implementation
type Options struct {
	// AccountName holds the Azure Blob Storage account name for authentication
	AccountName string

	// AccountKey holds the Azure Blob Storage account key for authentication
	AccountKey string

	// TenantID holds the Azure Service Account tenant id for authentication
	TenantID string

	// ClientID holds the Azure Service Account client id for authentication
	ClientID string

	// ClientSecret holds the Azure Service Account client secret for authentication
	ClientSecret string

	// ServiceURL overrides the blob service endpoint. Defaults to the public
	// endpoint for AccountName; set it explicitly for Azurite or sovereign
	// clouds.
	ServiceURL string

	// RetryMax bounds the transport-level retries for throttled or transient
	// upstream failures.
	RetryMax int

	transport policy.Transporter
}

// NewOptions reads gateway options from the environment.
func NewOptions() *Options {
	return &Options{
		AccountName:  os.Getenv("DRIVEGATE_AZURE_STORAGE_ACCOUNT"),
		AccountKey:   os.Getenv("DRIVEGATE_AZURE_STORAGE_ACCESS_KEY"),
		TenantID:     os.Getenv("DRIVEGATE_AZURE_TENANT_ID"),
		ClientID:     os.Getenv("DRIVEGATE_AZURE_CLIENT_ID"),
		ClientSecret: os.Getenv("DRIVEGATE_AZURE_CLIENT_SECRET"),
		ServiceURL:   os.Getenv("DRIVEGATE_AZURE_SERVICE_URL"),
		RetryMax:     3,
	}
}

func (o *Options) serviceURL() string {
	if o.ServiceURL != "" {
		return o.ServiceURL
	}
	return fmt.Sprintf("https://%s.blob.core.windows.net/", o.AccountName)
}

// clientOptions builds the SDK client options with a retrying transport.
func (o *Options) clientOptions() *azblob.ClientOptions {
	transport := o.transport
	if transport == nil {
		rc := retryablehttp.NewClient()
		rc.RetryMax = o.RetryMax
		rc.Logger = nil
		transport = rc.StandardClient()
	}
	return &azblob.ClientOptions{
		ClientOptions: policy.ClientOptions{Transport: transport},
	}
}

// NewClient builds the service client for the configured credentials.
// Service-principal credentials win over a shared key; with neither set the
// client is anonymous, which only works against public containers or an
// emulator.
func (o *Options) NewClient() (*azblob.Client, error) {
	opts := o.clientOptions()

	if o.TenantID != "" && o.ClientID != "" && o.ClientSecret != "" {
		cred, err := azidentity.NewClientSecretCredential(o.TenantID, o.ClientID, o.ClientSecret, nil)
		if err != nil {
			return nil, err
		}
		return azblob.NewClient(o.serviceURL(), cred, opts)
	}

	if o.AccountName != "" && o.AccountKey != "" {
		cred, err := azblob.NewSharedKeyCredential(o.AccountName, o.AccountKey)
		if err != nil {
			return nil, err
		}
		return azblob.NewClientWithSharedKeyCredential(o.serviceURL(), cred, opts)
	}

	return azblob.NewClientWithNoCredential(o.serviceURL(), opts)
}

// assert *http.Client satisfies the SDK transport interface
var _ policy.Transporter = (*http.Client)(nil)
