package errors

import (
	stderrors "errors"

	"github.com/bisongoscar/apple-sales-dashboard/internal/dataset"
	"github.com/bisongoscar/apple-sales-dashboard/internal/forecast"
	"github.com/bisongoscar/apple-sales-dashboard/internal/pipeline"
)

type domainMapping struct {
	sentinel error
	code     ErrorCode
	message  string
}

// domainErrors is checked in order. An empty message reuses the error text.
var domainErrors = []domainMapping{
	{dataset.ErrSchema, CodeSchema, "Sales data is missing required columns"},
	{pipeline.ErrMissingDateField, CodeMissingDateField, "No 'Date' column found in dataset for forecasting"},
	{forecast.ErrInsufficientHistory, CodeInsufficientHistory, "Not enough monthly history to forecast; broaden the filters"},
	{forecast.ErrForecastFittingFailed, CodeFittingFailed, "Forecast model could not be fitted to the selected data"},
	{forecast.ErrInvalidHorizon, CodeValidation, ""},
	{pipeline.ErrUnknownGroupKey, CodeValidation, ""},
}

// FromDomain maps the pipeline's sentinel errors onto API error codes. Errors
// it does not recognise become internal errors.
func FromDomain(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	for _, m := range domainErrors {
		if !stderrors.Is(err, m.sentinel) {
			continue
		}
		if m.message == "" {
			return Wrap(err, m.code, err.Error())
		}
		e := Wrap(err, m.code, m.message)
		e.Details = err.Error()
		return e
	}

	return InternalWrap(err, "An unexpected error occurred")
}
