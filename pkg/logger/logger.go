package logger

import (
	"go.uber.org/zap"
)

// New builds the process logger. Development mode gets the console
// encoder, everything else the production JSON encoder.
func New(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
