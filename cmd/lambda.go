package cmd

import (
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/mkfa/plannr-relay/internal/config"
	"github.com/mkfa/plannr-relay/internal/runtime"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func cmdLambda() *cobra.Command {
	cmd := &cobra.Command{
		Use: "lambda",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := logger.With("mode", config.ModeLambda)

			rt, err := setup(cmd.Context(), logger, nil,
				runtime.WithPathPrefix(config.Lambda.Path),
				runtime.WithLambdaPayloadType(config.Lambda.PayloadType))
			if err != nil {
				return errors.Wrap(err, "failed to setup lambda")
			}

			logger.Info("lambda starting...", "payloadType", config.Lambda.PayloadType)
			lambda.StartWithOptions(rt.Lambda,
				lambda.WithContext(cmd.Context()))
			return nil
		},
	}

	bindEnvMap(cmd, lambdaEnvMapString)

	return cmd
}
