package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// SalesReport is the aggregate returned by sales-report.
type SalesReport struct {
	TotalSales     int    `json:"total_sales"`
	TotalOrders    int    `json:"total_orders"`
	TotalCustomers int    `json:"total_customers"`
	BestClient     string `json:"best_client"`
}

type SalesReportArgs struct {
	Month int `json:"month" jsonschema:"description=Month number (1-12),minimum=1,maximum=12"`
}

// SalesReportTool reports monthly sales. Figures are fixed until it is wired
// to the orders database.
type SalesReportTool struct{}

func NewSalesReportTool() *SalesReportTool { return &SalesReportTool{} }

var salesReportSchema = GenerateSchema[SalesReportArgs]()

func (t *SalesReportTool) Name() string { return "sales-report" }
func (t *SalesReportTool) Description() string {
	return "Generate a sales report for a specific month"
}
func (t *SalesReportTool) Parameters() json.RawMessage { return salesReportSchema }

func (t *SalesReportTool) Execute(_ context.Context, params json.RawMessage) (string, error) {
	var args SalesReportArgs
	if err := decodeArgs(params, &args); err != nil {
		return "", err
	}
	if args.Month < 1 || args.Month > 12 {
		return "", fmt.Errorf("month must be between 1 and 12, got %d", args.Month)
	}

	data, err := json.Marshal(SalesReport{
		TotalSales:     100000,
		TotalOrders:    300,
		TotalCustomers: 4000,
		BestClient:     "Jhon Doe",
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}
	return string(data), nil
}
