package yfinance

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hupe1980/agentcrew/core"
	"github.com/hupe1980/agentcrew/logging"
	"github.com/hupe1980/agentcrew/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func yahooStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v8/finance/chart/NVDA", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"chart":{"result":[{"meta":{"currency":"USD","symbol":"NVDA","regularMarketPrice":181.5}}],"error":null}}`)
	})
	mux.HandleFunc("/v8/finance/chart/NOPE", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
	})
	mux.HandleFunc("/v10/finance/quoteSummary/NVDA", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("modules") {
		case "recommendationTrend":
			_, _ = io.WriteString(w, `{"quoteSummary":{"result":[{"recommendationTrend":{"trend":[
				{"period":"0m","strongBuy":12,"buy":45,"hold":5,"sell":1,"strongSell":0},
				{"period":"-1m","strongBuy":11,"buy":44,"hold":6,"sell":0,"strongSell":0}]}}],"error":null}}`)
		default:
			_, _ = io.WriteString(w, `{"quoteSummary":{"result":[{
				"price":{"longName":"NVIDIA Corporation","currency":"USD","marketCap":{"raw":4400000000000,"fmt":"4.4T"},"regularMarketPrice":{"raw":181.5}},
				"summaryDetail":{"trailingPE":{"raw":51.2},"fiftyTwoWeekHigh":{"raw":195.6},"fiftyTwoWeekLow":{"raw":86.6},"dividendYield":{}},
				"assetProfile":{"sector":"Technology","industry":"Semiconductors","fullTimeEmployees":36000},
				"financialData":{"recommendationKey":"strong_buy"}}],"error":null}}`)
		}
	})
	mux.HandleFunc("/v1/finance/search", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"news":[
			{"title":"NVIDIA beats estimates","publisher":"Reuters","link":"https://r/1","providerPublishTime":1700000000},
			{"title":"Chip demand","publisher":"Bloomberg","link":"https://b/2","providerPublishTime":1700000100},
			{"title":"Third","publisher":"X","link":"https://x/3","providerPublishTime":1700000200}]}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newKit(t *testing.T, optFns ...func(o *Options)) *tool.Registry {
	srv := yahooStub(t)
	fns := append([]func(o *Options){func(o *Options) {
		o.BaseURL = srv.URL
		o.SummaryURL = srv.URL
	}}, optFns...)
	return tool.NewRegistry(New(fns...).Tools()...)
}

func call(t *testing.T, reg *tool.Registry, name string, args map[string]any) (any, error) {
	t.Helper()
	tl, ok := reg.Get(name)
	require.True(t, ok, "tool %s not registered", name)
	rc := core.NewRunContext(context.Background(), "run", "", nil, logging.NoOpLogger{})
	return tl.Call(core.NewToolContext(rc, "fc"), args)
}

func TestNew_DefaultsToStockPrice(t *testing.T) {
	kit := New()
	descs := kit.Descriptors()
	require.Len(t, descs, 1)
	assert.Equal(t, FuncStockPrice, descs[0].Name)
	assert.True(t, descs[0].Flags["stock_price"])
	assert.False(t, descs[0].Flags["company_news"])
}

func TestNew_FlagsSelectFunctions(t *testing.T) {
	kit := New(func(o *Options) {
		o.StockPrice = true
		o.AnalystRecommendations = true
		o.StockFundamentals = true
		o.CompanyInfo = true
		o.CompanyNews = true
	})

	names := make([]string, 0)
	for _, d := range kit.Descriptors() {
		names = append(names, d.Name)
	}
	assert.ElementsMatch(t, []string{
		FuncStockPrice, FuncAnalystRecommendations, FuncStockFundamentals, FuncCompanyInfo, FuncCompanyNews,
	}, names)
}

func TestStockPrice(t *testing.T) {
	reg := newKit(t)

	out, err := call(t, reg, FuncStockPrice, map[string]any{"symbol": "nvda"})
	require.NoError(t, err)
	assert.Equal(t, "181.5000 USD", out)

	_, err = call(t, reg, FuncStockPrice, map[string]any{"symbol": "NOPE"})
	toolErr, ok := tool.AsToolError(err)
	require.True(t, ok)
	assert.Contains(t, toolErr.Message, "delisted")
}

func TestAnalystRecommendations(t *testing.T) {
	reg := newKit(t, func(o *Options) { o.AnalystRecommendations = true })

	out, err := call(t, reg, FuncAnalystRecommendations, map[string]any{"symbol": "NVDA"})
	require.NoError(t, err)
	recs, ok := out.([]Recommendation)
	require.True(t, ok)
	require.Len(t, recs, 2)
	assert.Equal(t, Recommendation{Period: "0m", StrongBuy: 12, Buy: 45, Hold: 5, Sell: 1}, recs[0])
}

func TestFundamentalsAndCompanyInfo(t *testing.T) {
	reg := newKit(t, func(o *Options) {
		o.StockFundamentals = true
		o.CompanyInfo = true
	})

	out, err := call(t, reg, FuncStockFundamentals, map[string]any{"symbol": "NVDA"})
	require.NoError(t, err)
	f := out.(map[string]any)
	assert.Equal(t, "NVIDIA Corporation", f["company_name"])
	assert.Equal(t, 51.2, f["pe_ratio"])
	assert.Nil(t, f["dividend_yield"])
	assert.Equal(t, "strong_buy", f["recommendation_key"])

	out, err = call(t, reg, FuncCompanyInfo, map[string]any{"symbol": "NVDA"})
	require.NoError(t, err)
	info := out.(map[string]any)
	assert.Equal(t, "Semiconductors", info["industry"])
	assert.Equal(t, 36000.0, info["employees"])
	assert.Equal(t, 181.5, info["current_price"])
}

func TestCompanyNews(t *testing.T) {
	reg := newKit(t, func(o *Options) { o.CompanyNews = true })

	out, err := call(t, reg, FuncCompanyNews, map[string]any{"symbol": "NVDA", "num_stories": 2.0})
	require.NoError(t, err)
	news := out.([]NewsItem)
	require.Len(t, news, 2)
	assert.Equal(t, "NVIDIA beats estimates", news[0].Title)
	assert.Equal(t, int64(1700000000), news[0].Published)

	out, err = call(t, reg, FuncCompanyNews, map[string]any{"symbol": "NVDA"})
	require.NoError(t, err)
	assert.Len(t, out.([]NewsItem), 3)
}
