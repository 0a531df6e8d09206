package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProducts struct {
	pages  [][]string
	inputs []*pricing.GetProductsInput
	err    error
}

func (f *fakeProducts) GetProducts(_ context.Context, in *pricing.GetProductsInput, _ ...func(*pricing.Options)) (*pricing.GetProductsOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	page := len(f.inputs) - 1
	out := &pricing.GetProductsOutput{PriceList: f.pages[page]}
	if page+1 < len(f.pages) {
		out.NextToken = aws.String("next")
	}
	return out, nil
}

const (
	item1 = `{"product":{"attributes":{"instanceType":"t3.micro"}},"terms":{"OnDemand":{"A.JRTCKXETXF":{"priceDimensions":{"A.JRTCKXETXF.6YS6EN2CT7":{"unit":"Hrs","pricePerUnit":{"USD":"0.0104000000"}}}}}}}`
	item2 = `{"terms":{"OnDemand":{"B":{"priceDimensions":{"B.1":{"unit":"Hrs","pricePerUnit":{"USD":"0.0000000000"}}}}}}}`
	item3 = `{"terms":{"OnDemand":{"C":{"priceDimensions":{"C.1":{"unit":"Hrs","pricePerUnit":{"USD":"0.0208"}}}}}}}`
)

func TestHourlyUSD(t *testing.T) {
	fake := &fakeProducts{pages: [][]string{{item3, "not json"}, {item2, item1}}}
	p := newAWSPricer(fake)

	price, err := p.HourlyUSD(context.Background(), "t3.micro", "us-east-1")
	require.NoError(t, err)
	assert.InDelta(t, 0.0104, price, 1e-9)
	require.Len(t, fake.inputs, 2)
	assert.Equal(t, "AmazonEC2", aws.ToString(fake.inputs[0].ServiceCode))

	fields := map[string]string{}
	for _, f := range fake.inputs[0].Filters {
		fields[aws.ToString(f.Field)] = aws.ToString(f.Value)
	}
	assert.Equal(t, "t3.micro", fields["instanceType"])
	assert.Equal(t, "us-east-1", fields["regionCode"])
}

func TestHourlyUSD_NoPrice(t *testing.T) {
	p := newAWSPricer(&fakeProducts{pages: [][]string{{item2}}})
	_, err := p.HourlyUSD(context.Background(), "x1.huge", "us-east-1")
	assert.ErrorIs(t, err, ErrNoPrice)
}

func TestHourlyUSD_APIError(t *testing.T) {
	p := newAWSPricer(&fakeProducts{err: errors.New("throttled")})
	_, err := p.HourlyUSD(context.Background(), "t3.micro", "us-east-1")
	assert.ErrorContains(t, err, "throttled")
}
