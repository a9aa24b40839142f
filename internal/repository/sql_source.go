package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"RegionFeed/internal/domain/models"
	"RegionFeed/internal/domain/repository"
)

// DefaultSettlementQuery aggregates published settlements per street and
// project category. It is MySQL syntax.
const DefaultSettlementQuery = `
SELECT
    LEFT(sys_article.village_code, 6) AS regionCode,
    sys_organization.name AS streetName,
    pt_pro_cq_type.name AS categoryName,
    SUM(sys_article.amount) AS settledAmount,
    SUM((SELECT COUNT(t.pro_id)
         FROM pt_pro_tenders t
         WHERE t.pro_id = sys_article.pro_id
           AND t.status NOT IN (0, 12)
           AND t.loss_tenders_reason IS NULL)) AS settledCount
FROM sys_article
LEFT JOIN (
    SELECT pro_id FROM pt_pro_tenders WHERE status <> 0 GROUP BY pro_id
) AS pt_pro_tenders ON sys_article.pro_id = pt_pro_tenders.pro_id
LEFT JOIN (
    SELECT * FROM pt_pro_cq_type WHERE pid = 0
) AS pt_pro_cq_type ON sys_article.pro_type = pt_pro_cq_type.code
LEFT JOIN (
    SELECT code, name, pid FROM sys_organization
    WHERE (LENGTH(code) = 9 OR LENGTH(code) = 6) AND code LIKE '6101%'
) AS sys_organization ON LEFT(sys_article.village_code, 9) = sys_organization.code
WHERE sys_article.article_title LIKE '%成交公示'
  AND sys_article.village_code LIKE '6101%'
GROUP BY
    LEFT(sys_article.village_code, 6),
    LEFT(sys_article.village_code, 9),
    sys_organization.name,
    pt_pro_cq_type.name
ORDER BY LEFT(sys_article.village_code, 6)`

// columnAliases maps legacy report column names to wire field names.
var columnAliases = map[string]string{
	"区代码":  models.FieldRegionCode,
	"街道":   models.FieldStreetName,
	"项目类别": models.FieldCategoryName,
	"成交金额": models.FieldSettledAmount,
	"成交笔数": models.FieldSettledCount,
}

// SQLSource runs one aggregate query and returns its rows keyed by column name.
type SQLSource struct {
	db      *sql.DB
	query   string
	timeout time.Duration
}

// NewSQLSource creates a data source over db. An empty query selects
// DefaultSettlementQuery.
func NewSQLSource(db *sql.DB, query string, timeout time.Duration) *SQLSource {
	if strings.TrimSpace(query) == "" {
		query = DefaultSettlementQuery
	}
	return &SQLSource{db: db, query: query, timeout: timeout}
}

func (s *SQLSource) Fetch(ctx context.Context) ([]models.Row, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	rows, err := s.db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	keys := make([]string, len(cols))
	for i, c := range cols {
		if alias, ok := columnAliases[c]; ok {
			keys[i] = alias
		} else {
			keys[i] = c
		}
	}

	var out []models.Row
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		row := make(models.Row, len(cols))
		for i, k := range keys {
			row[k] = normalize(vals[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *SQLSource) Close() error { return nil }

// normalize turns driver-specific scan results into JSON-friendly values.
func normalize(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return x
	}
}

var _ repository.DataSource = (*SQLSource)(nil)
