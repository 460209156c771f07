package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/ogurasousui/staffing-api/internal/platform/logger"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const keyPrefix = "staffing:company:"

// generationTTL は世代キーの保持期間です。読み取り中に失効しない長さを取ります。
const generationTTL = 24 * time.Hour

// fillScript は世代が一致する場合に限り予算を保存します。
var fillScript = goredis.NewScript(`
local current = redis.call('GET', KEYS[2])
if current == false then
  current = '0'
end
if current ~= ARGV[1] then
  return 0
end
if tonumber(ARGV[3]) > 0 then
  redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
  redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

// BudgetCache は会社ごとの給与予算を Redis に保持するキャッシュです。
// キャッシュの失敗は呼び出し元へ伝播させず、ログに残してミスとして扱います。
type BudgetCache struct {
	client goredis.UniversalClient
	ttl    time.Duration
	log    *logger.Logger
}

// NewBudgetCache は BudgetCache を生成します。
func NewBudgetCache(client goredis.UniversalClient, ttl time.Duration, log *logger.Logger) *BudgetCache {
	if log == nil {
		log = logger.NewNop()
	}
	return &BudgetCache{client: client, ttl: ttl, log: log.With("component", "budget_cache")}
}

// NewClient は設定値から go-redis クライアントを構築し、疎通を確認します。
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// 会社名をハッシュタグで囲み、予算と世代のキーが同じスロットに載るようにします。
func budgetKey(companyName string) string {
	return keyPrefix + "{" + companyName + "}:budget"
}

func generationKey(companyName string) string {
	return keyPrefix + "{" + companyName + "}:generation"
}

// GetBudget はキャッシュ済みの給与予算を返します。ミスの場合は現在の世代を返し、取得に失敗した場合は -1 を返します。
func (c *BudgetCache) GetBudget(ctx context.Context, companyName string) (decimal.Decimal, int64, bool) {
	values, err := c.client.MGet(ctx, budgetKey(companyName), generationKey(companyName)).Result()
	if err != nil {
		c.log.Warn("budget cache get failed", "company", companyName, "error", err)
		return decimal.Decimal{}, -1, false
	}

	generation := int64(0)
	if raw, ok := values[1].(string); ok {
		generation, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.log.Warn("budget cache holds malformed generation", "company", companyName, "value", raw)
			return decimal.Decimal{}, -1, false
		}
	}

	raw, ok := values[0].(string)
	if !ok {
		return decimal.Decimal{}, generation, false
	}

	budget, err := decimal.NewFromString(raw)
	if err != nil {
		c.log.Warn("budget cache holds malformed value", "company", companyName, "value", raw)
		c.Invalidate(ctx, companyName)
		return decimal.Decimal{}, -1, false
	}
	return budget, generation, true
}

// SetBudget は世代が generation のままであれば給与予算を TTL 付きで保存します。
func (c *BudgetCache) SetBudget(ctx context.Context, companyName string, generation int64, budget decimal.Decimal) {
	if generation < 0 {
		return
	}
	stored, err := fillScript.Run(ctx, c.client,
		[]string{budgetKey(companyName), generationKey(companyName)},
		strconv.FormatInt(generation, 10), budget.String(), c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		c.log.Warn("budget cache set failed", "company", companyName, "error", err)
		return
	}
	if stored == 0 {
		c.log.Debug("budget cache fill skipped after invalidation", "company", companyName, "generation", generation)
	}
}

// Invalidate は世代を進めたうえでキャッシュを破棄します。
func (c *BudgetCache) Invalidate(ctx context.Context, companyName string) {
	_, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(companyName))
		pipe.Expire(ctx, generationKey(companyName), generationTTL)
		pipe.Del(ctx, budgetKey(companyName))
		return nil
	})
	if err != nil {
		c.log.Warn("budget cache invalidate failed", "company", companyName, "error", err)
	}
}

// HealthCheck は Redis への疎通を確認する関数を返します。
func HealthCheck(client goredis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
