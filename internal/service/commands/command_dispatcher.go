package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/foodstation/internal/domain/models"
	"github.com/mamadbah2/foodstation/internal/service/ledger"
	"github.com/mamadbah2/foodstation/internal/service/reporting"
)

// ErrInvalidArguments indicates the command payload could not be parsed.
var ErrInvalidArguments = errors.New("invalid command arguments")

// ErrUnsupportedCommand indicates we do not yet support the requested command.
var ErrUnsupportedCommand = errors.New("unsupported command")

const helpText = `Ledger commands:
/record <pipeline> [YYYY-MM-DD] raw=<qty> rawprice=<price> produced=<qty> price=<price> shipped=<qty> [note]
  multi-output pipelines: produced.<category>=<qty>, price.<category>=..., shipped.<category>=..., clear.<category>
/day <pipeline> [YYYY-MM-DD]
/week <pipeline> [YYYY-MM-DD]
/month <pipeline> [YYYY-MM-DD]
Pipelines: tofu, bean_sprouts, salted_vegetable, sausage, livestock, poultry`

// LedgerAdapter defines the ledger operations required by the dispatcher.
type LedgerAdapter interface {
	RecordDaily(ctx context.Context, pipeline models.PipelineKind, day models.Day, fields models.RecordFields) (ledger.RecordResult, error)
	GetDaily(ctx context.Context, pipeline models.PipelineKind, day models.Day) (*models.LedgerRecord, error)
	GetPeriodSummary(ctx context.Context, pipeline models.PipelineKind, period models.Period) (models.PeriodSummary, error)
}

// Dispatcher executes parsed commands and returns the reply text.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error)
}

// Service implements the Dispatcher interface.
type Service struct {
	ledger   LedgerAdapter
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewService constructs a command dispatcher. Days default to today in loc.
func NewService(ledgerSvc LedgerAdapter, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		ledger:   ledgerSvc,
		location: loc,
		logger:   logger,
		now:      time.Now,
	}
}

// HandleCommand runs the command against the ledger.
func (s *Service) HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error) {
	s.logger.Debug("dispatching command", zap.String("command", string(cmd.Type)), zap.String("sender", sender), zap.Strings("args", cmd.Args))

	switch cmd.Type {
	case models.CommandHelp:
		return helpText, nil
	case models.CommandRecord:
		return s.handleRecord(ctx, cmd, sender)
	case models.CommandDay:
		pipeline, day, err := s.pipelineAndDay(cmd.Args)
		if err != nil {
			return "", err
		}
		rec, err := s.ledger.GetDaily(ctx, pipeline, day)
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Sprintf("No %s record for %s yet.", pipeline, day), nil
		}
		if err != nil {
			return "", err
		}
		return reporting.FormatRecord(*rec), nil
	case models.CommandWeek, models.CommandMonth:
		pipeline, day, err := s.pipelineAndDay(cmd.Args)
		if err != nil {
			return "", err
		}
		period := models.WeekOf(day)
		if cmd.Type == models.CommandMonth {
			period = models.MonthOf(day)
		}
		summary, err := s.ledger.GetPeriodSummary(ctx, pipeline, period)
		if err != nil {
			return "", err
		}
		return reporting.FormatSummary(summary), nil
	default:
		return "", ErrUnsupportedCommand
	}
}

func (s *Service) handleRecord(ctx context.Context, cmd models.Command, sender string) (string, error) {
	pipeline, day, rest, err := s.parseHead(cmd.Args)
	if err != nil {
		return "", err
	}
	p, _ := models.LookupPipeline(pipeline)

	fields, err := ParseRecordFields(p, rest)
	if err != nil {
		return "", err
	}

	result, err := s.ledger.RecordDaily(ctx, pipeline, day, fields)
	if err != nil {
		return "", err
	}

	s.logger.Info("ledger record submitted over chat",
		zap.String("sender", sender),
		zap.String("pipeline", string(pipeline)),
		zap.String("date", day.String()))

	verb := "updated"
	if result.Created {
		verb = "created"
	}
	message := fmt.Sprintf("Record %s.\n%s", verb, reporting.FormatRecord(result.Record))
	if n := len(result.Cascade.Updated); n > 0 {
		message += fmt.Sprintf("\nCarry-over updated on %d later days.", n)
	}
	for _, sf := range result.Shortfalls {
		message += "\nWarning: " + sf.String()
	}
	return message, nil
}

// ParseRecordFields reads key=value tokens into a partial edit. Unkeyed tokens
// form the note. Unqualified keys target the pipeline's primary category.
func ParseRecordFields(p models.Pipeline, tokens []string) (models.RecordFields, error) {
	fields := models.RecordFields{Lines: map[models.Category]models.LineFields{}}
	var note []string

	for _, token := range tokens {
		key, value, ok := strings.Cut(token, "=")
		if !ok {
			if lower := strings.ToLower(token); lower == "clear" || strings.HasPrefix(lower, "clear.") {
				c, err := categoryOf(p, token, "clear")
				if err != nil {
					return models.RecordFields{}, err
				}
				lf := fields.Lines[c]
				lf.ClearOverride = true
				fields.Lines[c] = lf
				continue
			}
			note = append(note, token)
			continue
		}

		key = strings.ToLower(key)
		qty, err := decimal.NewFromString(value)
		if err != nil {
			return models.RecordFields{}, fmt.Errorf("%w: %s is not a number", ErrInvalidArguments, token)
		}

		switch {
		case key == "raw":
			fields.RawInput = &qty
		case key == "rawprice":
			fields.RawUnitPrice = &qty
		case strings.HasPrefix(key, "produced"), strings.HasPrefix(key, "price"), strings.HasPrefix(key, "shipped"):
			field, _, _ := strings.Cut(key, ".")
			c, err := categoryOf(p, key, field)
			if err != nil {
				return models.RecordFields{}, err
			}
			lf := fields.Lines[c]
			switch field {
			case "produced":
				lf.Produced = &qty
			case "price":
				lf.UnitPrice = &qty
			case "shipped":
				lf.Shipped = &qty
			default:
				return models.RecordFields{}, fmt.Errorf("%w: unknown key %s", ErrInvalidArguments, key)
			}
			fields.Lines[c] = lf
		default:
			return models.RecordFields{}, fmt.Errorf("%w: unknown key %s", ErrInvalidArguments, key)
		}
	}

	if len(note) > 0 {
		joined := strings.Join(note, " ")
		fields.Note = &joined
	}
	if len(fields.Lines) == 0 {
		fields.Lines = nil
	}
	return fields, nil
}

// categoryOf resolves "field" or "field.category".
func categoryOf(p models.Pipeline, key, field string) (models.Category, error) {
	suffix := strings.TrimPrefix(strings.ToLower(key), field)
	if suffix == "" {
		if p.HasByproducts() {
			return "", fmt.Errorf("%w: %s needs a category for %s, e.g. %s.%s", ErrInvalidArguments, field, p.Kind, field, p.PrimaryCategory())
		}
		return p.PrimaryCategory(), nil
	}
	if !strings.HasPrefix(suffix, ".") {
		return "", fmt.Errorf("%w: unknown key %s", ErrInvalidArguments, key)
	}
	return p.ParseCategory(suffix[1:])
}

func (s *Service) pipelineAndDay(args []string) (models.PipelineKind, models.Day, error) {
	pipeline, day, rest, err := s.parseHead(args)
	if err != nil {
		return "", "", err
	}
	if len(rest) > 0 {
		return "", "", fmt.Errorf("%w: unexpected %s", ErrInvalidArguments, strings.Join(rest, " "))
	}
	return pipeline, day, nil
}

// parseHead reads "<pipeline> [date]" and returns the remaining tokens.
func (s *Service) parseHead(args []string) (models.PipelineKind, models.Day, []string, error) {
	if len(args) == 0 {
		return "", "", nil, fmt.Errorf("%w: pipeline is required", ErrInvalidArguments)
	}
	pipeline, err := models.ParsePipelineKind(args[0])
	if err != nil {
		return "", "", nil, err
	}

	rest := args[1:]
	day := models.DayOf(s.now(), s.location)
	if len(rest) > 0 && !strings.Contains(rest[0], "=") {
		if parsed, err := models.ParseDay(rest[0]); err == nil && len(rest[0]) == len(models.DayLayout) {
			day = parsed
			rest = rest[1:]
		}
	}
	return pipeline, day, rest, nil
}
