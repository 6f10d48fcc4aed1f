package common

import (
	"context"

	"skillmatch/internal/errors"
)

// OperationFunc is one backend round trip performed by a command
type OperationFunc[Output any] func(context.Context) (Output, error)

// RunCommand validates the output target, runs operation and prints its
// result through the formatter registry.
func RunCommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	outputHandler *OutputHandler,
	operation OperationFunc[Output],
	logDetails func(CommandConfig),
) error {
	if outputHandler == nil {
		outputHandler = NewOutputHandler(logger)
	}

	// fail before the network call if the output cannot be written
	if err := outputHandler.fileProcessor.ValidateOutputFile(cmdConfig.OutputFile); err != nil {
		return err
	}

	if logDetails != nil {
		logDetails(cmdConfig)
	}

	result, err := operation(ctx)
	if err != nil {
		return err
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}
