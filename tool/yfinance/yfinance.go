// Package yfinance provides the finance toolkit: one function per enabled
// flag, backed by the Yahoo Finance JSON endpoints.
package yfinance

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hupe1980/agentcrew/core"
	"github.com/hupe1980/agentcrew/tool"
)

// Function names exposed to models.
const (
	FuncStockPrice             = "get_current_stock_price"
	FuncAnalystRecommendations = "get_analyst_recommendations"
	FuncStockFundamentals      = "get_stock_fundamentals"
	FuncCompanyInfo            = "get_company_info"
	FuncCompanyNews            = "get_company_news"
)

// Options select the functions of the toolkit and the transport.
type Options struct {
	StockPrice             bool
	AnalystRecommendations bool
	StockFundamentals      bool
	CompanyInfo            bool
	CompanyNews            bool

	// BaseURL serves chart and search endpoints; SummaryURL serves quoteSummary.
	BaseURL    string
	SummaryURL string
	UserAgent  string
	HTTPClient HTTPDoer
}

// SymbolArgs identify a ticker.
type SymbolArgs struct {
	Symbol string `json:"symbol" description:"The stock symbol, e.g. NVDA."`
}

// NewsArgs select the news feed of a ticker.
type NewsArgs struct {
	Symbol          string `json:"symbol" description:"The stock symbol, e.g. NVDA."`
	NumberOfStories *int   `json:"num_stories" description:"Number of stories to return. Defaults to 3."`
}

// New builds the toolkit. With no flags set only the stock price function is enabled.
func New(optFns ...func(o *Options)) *tool.Toolkit {
	opts := Options{
		BaseURL:    "https://query1.finance.yahoo.com",
		SummaryURL: "https://query2.finance.yahoo.com",
		UserAgent:  "Mozilla/5.0 (compatible; agentcrew/1.0)",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if !opts.StockPrice && !opts.AnalystRecommendations && !opts.StockFundamentals && !opts.CompanyInfo && !opts.CompanyNews {
		opts.StockPrice = true
	}

	chart := NewClient(opts.BaseURL, opts.UserAgent, opts.HTTPClient)
	summary := NewClient(opts.SummaryURL, opts.UserAgent, opts.HTTPClient)

	var tools []tool.Tool
	if opts.StockPrice {
		tools = append(tools, tool.NewTypedFunctionTool(FuncStockPrice,
			"Use this function to get the current stock price for a given symbol.",
			func(tc *core.ToolContext, a SymbolArgs) (any, error) {
				price, currency, err := chart.Price(tc.Context(), normalize(a.Symbol))
				if err != nil {
					return nil, err
				}
				return fmt.Sprintf("%.4f %s", price, currency), nil
			}))
	}
	if opts.AnalystRecommendations {
		tools = append(tools, tool.NewTypedFunctionTool(FuncAnalystRecommendations,
			"Use this function to get analyst recommendations for a given stock symbol.",
			func(tc *core.ToolContext, a SymbolArgs) (any, error) {
				res, err := summary.Summary(tc.Context(), normalize(a.Symbol), "recommendationTrend")
				if err != nil {
					return nil, err
				}
				return recommendations(res), nil
			}))
	}
	if opts.StockFundamentals {
		tools = append(tools, tool.NewTypedFunctionTool(FuncStockFundamentals,
			"Use this function to get fundamental data for a given stock symbol.",
			func(tc *core.ToolContext, a SymbolArgs) (any, error) {
				res, err := summary.Summary(tc.Context(), normalize(a.Symbol), "price", "summaryDetail", "defaultKeyStatistics", "financialData")
				if err != nil {
					return nil, err
				}
				return fundamentals(normalize(a.Symbol), res), nil
			}))
	}
	if opts.CompanyInfo {
		tools = append(tools, tool.NewTypedFunctionTool(FuncCompanyInfo,
			"Use this function to get company information and overview for a given stock symbol.",
			func(tc *core.ToolContext, a SymbolArgs) (any, error) {
				res, err := summary.Summary(tc.Context(), normalize(a.Symbol), "assetProfile", "price", "summaryDetail")
				if err != nil {
					return nil, err
				}
				return companyInfo(normalize(a.Symbol), res), nil
			}))
	}
	if opts.CompanyNews {
		tools = append(tools, tool.NewTypedFunctionTool(FuncCompanyNews,
			"Use this function to get company news and press releases for a given stock symbol.",
			func(tc *core.ToolContext, a NewsArgs) (any, error) {
				n := 3
				if a.NumberOfStories != nil && *a.NumberOfStories > 0 {
					n = *a.NumberOfStories
				}
				return chart.News(tc.Context(), normalize(a.Symbol), n)
			}))
	}

	return tool.NewToolkit("yfinance", map[string]bool{
		"stock_price":             opts.StockPrice,
		"analyst_recommendations": opts.AnalystRecommendations,
		"stock_fundamentals":      opts.StockFundamentals,
		"company_info":            opts.CompanyInfo,
		"company_news":            opts.CompanyNews,
	}, tools...)
}

func normalize(symbol string) string { return strings.ToUpper(strings.TrimSpace(symbol)) }

// Recommendation is one monthly analyst rating distribution.
type Recommendation struct {
	Period     string `json:"period"`
	StrongBuy  int64  `json:"strong_buy"`
	Buy        int64  `json:"buy"`
	Hold       int64  `json:"hold"`
	Sell       int64  `json:"sell"`
	StrongSell int64  `json:"strong_sell"`
}

func recommendations(res gjson.Result) []Recommendation {
	out := []Recommendation{}
	res.Get("recommendationTrend.trend").ForEach(func(_, v gjson.Result) bool {
		out = append(out, Recommendation{
			Period:     v.Get("period").String(),
			StrongBuy:  v.Get("strongBuy").Int(),
			Buy:        v.Get("buy").Int(),
			Hold:       v.Get("hold").Int(),
			Sell:       v.Get("sell").Int(),
			StrongSell: v.Get("strongSell").Int(),
		})
		return true
	})
	return out
}

// raw reads a Yahoo numeric field, which is either {raw, fmt} or a plain value.
func raw(res gjson.Result, path string) any {
	v := res.Get(path)
	if !v.Exists() {
		return nil
	}
	if r := v.Get("raw"); r.Exists() {
		return r.Value()
	}
	if v.IsObject() {
		return nil
	}
	return v.Value()
}

func fundamentals(symbol string, res gjson.Result) map[string]any {
	return map[string]any{
		"symbol":             symbol,
		"company_name":       res.Get("price.longName").String(),
		"market_cap":         raw(res, "price.marketCap"),
		"pe_ratio":           raw(res, "summaryDetail.trailingPE"),
		"forward_pe":         raw(res, "summaryDetail.forwardPE"),
		"pb_ratio":           raw(res, "defaultKeyStatistics.priceToBook"),
		"dividend_yield":     raw(res, "summaryDetail.dividendYield"),
		"eps":                raw(res, "defaultKeyStatistics.trailingEps"),
		"beta":               raw(res, "summaryDetail.beta"),
		"52_week_high":       raw(res, "summaryDetail.fiftyTwoWeekHigh"),
		"52_week_low":        raw(res, "summaryDetail.fiftyTwoWeekLow"),
		"revenue_growth":     raw(res, "financialData.revenueGrowth"),
		"profit_margins":     raw(res, "financialData.profitMargins"),
		"recommendation_key": res.Get("financialData.recommendationKey").String(),
	}
}

func companyInfo(symbol string, res gjson.Result) map[string]any {
	return map[string]any{
		"symbol":         symbol,
		"name":           res.Get("price.longName").String(),
		"current_price":  raw(res, "price.regularMarketPrice"),
		"currency":       res.Get("price.currency").String(),
		"market_cap":     raw(res, "price.marketCap"),
		"sector":         res.Get("assetProfile.sector").String(),
		"industry":       res.Get("assetProfile.industry").String(),
		"website":        res.Get("assetProfile.website").String(),
		"employees":      raw(res, "assetProfile.fullTimeEmployees"),
		"city":           res.Get("assetProfile.city").String(),
		"country":        res.Get("assetProfile.country").String(),
		"summary":        res.Get("assetProfile.longBusinessSummary").String(),
		"52_week_high":   raw(res, "summaryDetail.fiftyTwoWeekHigh"),
		"52_week_low":    raw(res, "summaryDetail.fiftyTwoWeekLow"),
		"dividend_yield": raw(res, "summaryDetail.dividendYield"),
	}
}
