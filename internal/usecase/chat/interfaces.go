package chat

import (
	"github.com/finestate/hub-backend/internal/entity"
	"github.com/finestate/hub-backend/internal/pkg/formatter"
)

type FormatterFactory interface {
	Create(format entity.ResultFormat) (formatter.Formatter, error)
}
