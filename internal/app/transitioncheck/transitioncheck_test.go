package transitioncheck_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/stagetrack/internal/app/transitioncheck"
	"github.com/slok/stagetrack/internal/log"
	"github.com/slok/stagetrack/internal/model"
)

func TestService_Run(t *testing.T) {
	tests := map[string]struct {
		req       transitioncheck.Request
		expResult *model.TransitionCheck
		expErr    bool
	}{
		"forward by one should be allowed": {
			req: transitioncheck.Request{From: "planning", To: "createRepo"},
			expResult: &model.TransitionCheck{
				From:    model.StagePlanning,
				To:      model.StageCreateRepo,
				Allowed: true,
			},
		},
		"returning to planning should be an allowed restart": {
			req: transitioncheck.Request{From: "11", To: "7"},
			expResult: &model.TransitionCheck{
				From:    model.StageParallelExecution,
				To:      model.StagePlanning,
				Allowed: true,
				Restart: true,
			},
		},
		"skip should be rejected with its reason": {
			req: transitioncheck.Request{From: "AGENT_DEPLOYMENT", To: "VALIDATION"},
			expResult: &model.TransitionCheck{
				From:    model.StageAgentDeployment,
				To:      model.StageValidation,
				Reason:  model.TransitionReasonSkip,
				Message: "cannot skip from AGENT_DEPLOYMENT to VALIDATION; must progress sequentially",
			},
		},
		"unknown from stage should fail": {
			req:    transitioncheck.Request{From: "deploy", To: "planning"},
			expErr: true,
		},
		"unknown to stage should fail": {
			req:    transitioncheck.Request{From: "planning", To: "99"},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			svc, err := transitioncheck.NewService(transitioncheck.ServiceConfig{Logger: log.Noop})
			require.NoError(err)

			res, err := svc.Run(context.Background(), test.req)

			if test.expErr {
				assert.ErrorIs(err, model.ErrNotValid)
			} else {
				require.NoError(err)
				assert.Equal(test.expResult, res)
			}
		})
	}
}
