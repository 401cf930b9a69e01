package tenancy

import "context"

type ctxKey string

const companyKey ctxKey = "tradeline.company_id"

// WithCompanyID stores the company id in context.
func WithCompanyID(ctx context.Context, companyID string) context.Context {
	return context.WithValue(ctx, companyKey, companyID)
}

// CompanyIDFromContext extracts the company id if present.
func CompanyIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(companyKey)
	if val == nil {
		return "", false
	}
	companyID, ok := val.(string)
	return companyID, ok && companyID != ""
}
