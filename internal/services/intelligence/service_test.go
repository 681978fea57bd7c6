package intelligence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pythia/internal/domain/market"
	"pythia/pkg/errors"
	"pythia/pkg/logger"
)

func newTestLogger() *logger.Logger {
	zapLog, _ := zap.NewDevelopment()
	return &logger.Logger{SugaredLogger: zapLog.Sugar()}
}

type stubCatalog struct {
	m   *market.Market
	err error
}

func (s *stubCatalog) MarketByCondition(context.Context, string) (*market.Market, error) {
	return s.m, s.err
}

func (s *stubCatalog) Markets(context.Context, market.Query) ([]market.Market, error) {
	return nil, nil
}

type stubEngine struct {
	similar []market.Market
	err     error
}

func (s *stubEngine) Similar(context.Context, string, int) ([]market.Market, error) {
	return s.similar, s.err
}

func analyze(t *testing.T, m market.Market) market.IntelligenceReport {
	t.Helper()
	svc := NewService(&stubCatalog{m: &m}, nil, newTestLogger())
	report, err := svc.Analyze(context.Background(), m.ConditionID)
	require.NoError(t, err)
	return report
}

func TestHealthBands(t *testing.T) {
	cases := []struct {
		name string
		m    market.Market
		want string
	}{
		{"healthy", market.Market{Active: true, Liquidity: 20_000, Volume: 100_000}, market.HealthHealthy},
		{"moderate", market.Market{Active: true, Liquidity: 3_000, Volume: 100_000}, market.HealthModerate},
		{"thin", market.Market{Active: true, Liquidity: 500, Volume: 100_000}, market.HealthThin},
		{"zero volume is thin", market.Market{Active: true, Liquidity: 500}, market.HealthThin},
		{"inactive dominates", market.Market{Active: false, Liquidity: 20_000, Volume: 100_000}, market.HealthInactive},
		{"closed dominates", market.Market{Active: true, Closed: true, Liquidity: 20_000, Volume: 100_000}, market.HealthClosed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, analyze(t, tc.m).Health)
		})
	}
}

func TestRiskBands(t *testing.T) {
	cases := []struct {
		name string
		m    market.Market
		want string
	}{
		{"low", market.Market{Active: true, Liquidity: 60_000, Volume: 200_000}, market.RiskLow},
		{"high on liquidity", market.Market{Active: true, Liquidity: 4_000, Volume: 200_000}, market.RiskHigh},
		{"high on volume", market.Market{Active: true, Liquidity: 60_000, Volume: 9_000}, market.RiskHigh},
		{"medium", market.Market{Active: true, Liquidity: 20_000, Volume: 50_000}, market.RiskMedium},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, analyze(t, tc.m).RiskLevel)
		})
	}
}

func TestConfidenceScore(t *testing.T) {
	future := time.Now().Add(30 * 24 * time.Hour).Format(time.RFC3339)

	t.Run("complete deep future-dated market scores 100", func(t *testing.T) {
		m := market.Market{
			ConditionID: "0xA", Question: "Q", Category: "Politics",
			Active: true, Liquidity: 60_000, Volume: 200_000, EndDate: future,
		}
		assert.Equal(t, 100, analyze(t, m).Confidence)
	})

	t.Run("missing fields lose the completeness points", func(t *testing.T) {
		m := market.Market{
			ConditionID: "0xA", Active: true,
			Liquidity: 60_000, Volume: 200_000, EndDate: future,
		}
		assert.Equal(t, 60, analyze(t, m).Confidence)
	})

	t.Run("past end date earns nothing for dating", func(t *testing.T) {
		m := market.Market{
			ConditionID: "0xA", Question: "Q", Category: "Politics",
			Active: true, Liquidity: 15_000, Volume: 50_000, EndDate: "2020-01-01",
		}
		assert.Equal(t, 60, analyze(t, m).Confidence) // 40 complete + 20 depth
	})

	t.Run("bare market scores zero", func(t *testing.T) {
		assert.Equal(t, 0, analyze(t, market.Market{Active: true}).Confidence)
	})
}

func TestAnalyzeSimilarIsBestEffort(t *testing.T) {
	m := &market.Market{ConditionID: "0xA", Question: "Q", Active: true}

	t.Run("engine results attach", func(t *testing.T) {
		svc := NewService(&stubCatalog{m: m}, &stubEngine{similar: []market.Market{{ConditionID: "0xB"}}}, newTestLogger())
		report, err := svc.Analyze(context.Background(), "0xA")
		require.NoError(t, err)
		require.Len(t, report.Similar, 1)
	})

	t.Run("engine failure leaves report intact", func(t *testing.T) {
		svc := NewService(&stubCatalog{m: m}, &stubEngine{err: errors.ErrExternal}, newTestLogger())
		report, err := svc.Analyze(context.Background(), "0xA")
		require.NoError(t, err)
		assert.Empty(t, report.Similar)
	})

	t.Run("unknown market fails", func(t *testing.T) {
		svc := NewService(&stubCatalog{err: errors.ErrNotFound}, nil, newTestLogger())
		_, err := svc.Analyze(context.Background(), "0xNOPE")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrNotFound))
	})
}
