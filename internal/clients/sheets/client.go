package sheets

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	gsheets "google.golang.org/api/sheets/v4"
	"google.golang.org/api/option"

	"github.com/yungbote/pencilbase-backend/internal/logger"
	"github.com/yungbote/pencilbase-backend/internal/utils"
)

// TopicRow is one raw row of the taxonomy tab: up to three cells, left to
// right from the broadest topic to the most specific. Blank cells come
// through as empty strings; the header row is not stripped here.
type TopicRow struct {
	Level1 string
	Level2 string
	Level3 string
}

// QuestionRow is one parsed row of the questions tab.
type QuestionRow struct {
	QuestionNumber int64
	Annotations    []string
}

type Client struct {
	log           *logger.Logger
	svc           *gsheets.Service
	spreadsheetID string
	topicsTab     string
	questionsTab  string
	limiter       *rateLimiter
}

func NewClient(log *logger.Logger) (*Client, error) {
	clientLog := log.With("client", "SheetsClient")

	spreadsheetID := strings.TrimSpace(os.Getenv("SHEETS_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, fmt.Errorf("missing env var SHEETS_SPREADSHEET_ID")
	}
	topicsTab := utils.GetEnv("SHEETS_TOPICS_TAB", "Topics", log)
	questionsTab := utils.GetEnv("SHEETS_QUESTIONS_TAB", "Questions", log)

	ctx := context.Background()
	var svc *gsheets.Service
	var err error
	apiKey := strings.TrimSpace(os.Getenv("SHEETS_API_KEY"))
	saPath := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	switch {
	case apiKey != "":
		svc, err = gsheets.NewService(ctx, option.WithAPIKey(apiKey), option.WithScopes(gsheets.SpreadsheetsReadonlyScope))
	case saPath != "":
		svc, err = gsheets.NewService(ctx, option.WithCredentialsFile(saPath), option.WithScopes(gsheets.SpreadsheetsReadonlyScope))
	default:
		clientLog.Warn("Neither SHEETS_API_KEY nor GOOGLE_APPLICATION_CREDENTIALS_JSON set, relying on ADC...")
		svc, err = gsheets.NewService(ctx, option.WithScopes(gsheets.SpreadsheetsReadonlyScope))
	}
	if err != nil {
		return nil, fmt.Errorf("Failed to create sheets service: %w", err)
	}

	return &Client{
		log:           clientLog,
		svc:           svc,
		spreadsheetID: spreadsheetID,
		topicsTab:     topicsTab,
		questionsTab:  questionsTab,
		limiter:       newRateLimiter(),
	}, nil
}

func (c *Client) FetchTopicRows(ctx context.Context) ([]TopicRow, error) {
	values, err := c.fetchRange(ctx, c.topicsTab+"!A:C")
	if err != nil {
		return nil, fmt.Errorf("Failed to fetch topic rows: %w", err)
	}

	rows := make([]TopicRow, 0, len(values))
	for _, raw := range values {
		rows = append(rows, TopicRow{
			Level1: cellString(raw, 0),
			Level2: cellString(raw, 1),
			Level3: cellString(raw, 2),
		})
	}
	c.log.Info("Fetched topic rows", "count", len(rows))
	return rows, nil
}

// FetchQuestionRows parses the questions tab: first cell is the question
// number, remaining cells are annotations. Rows without a numeric first
// cell (the header row included) are skipped.
func (c *Client) FetchQuestionRows(ctx context.Context) ([]QuestionRow, error) {
	values, err := c.fetchRange(ctx, c.questionsTab+"!A:H")
	if err != nil {
		return nil, fmt.Errorf("Failed to fetch question rows: %w", err)
	}

	rows := make([]QuestionRow, 0, len(values))
	for _, raw := range values {
		numberCell := cellString(raw, 0)
		number, perr := strconv.ParseInt(numberCell, 10, 64)
		if perr != nil {
			continue
		}
		annotations := []string{}
		for i := 1; i < len(raw); i++ {
			if v := cellString(raw, i); v != "" {
				annotations = append(annotations, v)
			}
		}
		rows = append(rows, QuestionRow{QuestionNumber: number, Annotations: annotations})
	}
	c.log.Info("Fetched question rows", "count", len(rows))
	return rows, nil
}

func (c *Client) fetchRange(ctx context.Context, readRange string) ([][]interface{}, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func cellString(row []interface{}, idx int) string {
	if idx >= len(row) || row[idx] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[idx]))
}
