// Package pricing looks up on-demand compute prices for cost estimates.
package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/aws/aws-sdk-go-v2/service/pricing/types"
)

// ErrNoPrice is returned when the catalogue has no on-demand price for the query.
var ErrNoPrice = errors.New("no on-demand price found")

// HoursPerMonth is the AWS billing convention for monthly estimates.
const HoursPerMonth = 730

// productsAPI is the slice of the pricing client used here.
type productsAPI interface {
	GetProducts(ctx context.Context, in *pricing.GetProductsInput, optFns ...func(*pricing.Options)) (*pricing.GetProductsOutput, error)
}

// AWSPricer queries the AWS Price List API for EC2 instances.
type AWSPricer struct {
	client productsAPI
}

// NewAWSPricer loads the default AWS credential chain. The Price List API is
// served from a few regions only; us-east-1 is the usual choice.
func NewAWSPricer(ctx context.Context, apiRegion string) (*AWSPricer, error) {
	if apiRegion == "" {
		apiRegion = "us-east-1"
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(apiRegion))
	if err != nil {
		return nil, fmt.Errorf("aws config load: %w", err)
	}
	return &AWSPricer{client: pricing.NewFromConfig(cfg)}, nil
}

func newAWSPricer(client productsAPI) *AWSPricer {
	return &AWSPricer{client: client}
}

// HourlyUSD returns the cheapest Linux shared-tenancy on-demand hourly price
// of instanceType in region.
func (p *AWSPricer) HourlyUSD(ctx context.Context, instanceType, region string) (float64, error) {
	in := &pricing.GetProductsInput{
		ServiceCode:   aws.String("AmazonEC2"),
		FormatVersion: aws.String("aws_v1"),
		MaxResults:    aws.Int32(20),
		Filters: []types.Filter{
			termMatch("instanceType", instanceType),
			termMatch("regionCode", region),
			termMatch("operatingSystem", "Linux"),
			termMatch("tenancy", "Shared"),
			termMatch("preInstalledSw", "NA"),
			termMatch("capacitystatus", "Used"),
		},
	}

	best := 0.0
	paginator := pricing.NewGetProductsPaginator(p.client, in)
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("GetProducts: %w", err)
		}
		for _, raw := range out.PriceList {
			price, ok := onDemandHourly(raw)
			if ok && (best == 0 || price < best) {
				best = price
			}
		}
	}
	if best == 0 {
		return 0, fmt.Errorf("%w: %s in %s", ErrNoPrice, instanceType, region)
	}
	return best, nil
}

func termMatch(field, value string) types.Filter {
	return types.Filter{
		Field: aws.String(field),
		Type:  types.FilterTypeTermMatch,
		Value: aws.String(value),
	}
}

type priceListItem struct {
	Terms struct {
		OnDemand map[string]struct {
			PriceDimensions map[string]struct {
				Unit         string            `json:"unit"`
				PricePerUnit map[string]string `json:"pricePerUnit"`
			} `json:"priceDimensions"`
		} `json:"OnDemand"`
	} `json:"terms"`
}

// onDemandHourly extracts the first positive hourly USD price from a price list entry.
func onDemandHourly(raw string) (float64, bool) {
	var item priceListItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return 0, false
	}
	for _, term := range item.Terms.OnDemand {
		for _, dim := range term.PriceDimensions {
			if !strings.EqualFold(dim.Unit, "Hrs") {
				continue
			}
			usd, err := strconv.ParseFloat(dim.PricePerUnit["USD"], 64)
			if err == nil && usd > 0 {
				return usd, true
			}
		}
	}
	return 0, false
}
