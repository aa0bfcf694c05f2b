package model_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/stagetrack/internal/model"
)

func TestValidateTransition(t *testing.T) {
	tests := map[string]struct {
		from      model.Stage
		to        model.Stage
		expReason model.TransitionReason
		expMsg    string
	}{
		"Moving forward by one stage should be allowed.": {
			from: model.StagePlanning,
			to:   model.StageCreateRepo,
		},
		"Moving from the last execution stage to validation should be allowed.": {
			from: model.StageParallelExecution,
			to:   model.StageValidation,
		},
		"Returning to planning from a later stage should be allowed.": {
			from: model.StageAgentDeployment,
			to:   model.StagePlanning,
		},
		"Returning to planning from the last stage should be allowed.": {
			from: model.StageValidation,
			to:   model.StagePlanning,
		},
		"Staying in the same stage should fail.": {
			from:      model.StageCreateRepo,
			to:        model.StageCreateRepo,
			expReason: model.TransitionReasonSameStage,
			expMsg:    "already in stage CREATE_REPO",
		},
		"Staying in planning should fail.": {
			from:      model.StagePlanning,
			to:        model.StagePlanning,
			expReason: model.TransitionReasonSameStage,
			expMsg:    "already in stage PLANNING",
		},
		"Going backwards to a stage other than planning should fail.": {
			from:      model.StageParallelExecution,
			to:        model.StageCreateRepo,
			expReason: model.TransitionReasonBackward,
			expMsg:    "cannot go backwards from PARALLEL_EXECUTION to CREATE_REPO unless returning to planning",
		},
		"Skipping a stage should fail.": {
			from:      model.StageAgentDeployment,
			to:        model.StageValidation,
			expReason: model.TransitionReasonSkip,
			expMsg:    "cannot skip from AGENT_DEPLOYMENT to VALIDATION; must progress sequentially",
		},
		"Skipping stages from planning should fail.": {
			from:      model.StagePlanning,
			to:        model.StagePublishBacklog,
			expReason: model.TransitionReasonSkip,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			err := model.ValidateTransition(test.from, test.to)

			if test.expReason == "" {
				assert.NoError(err)
				return
			}

			require.Error(err)
			assert.True(errors.Is(err, model.ErrNotValid))

			var terr *model.TransitionError
			require.True(errors.As(err, &terr))
			assert.Equal(test.expReason, terr.Reason)
			assert.Equal(test.from, terr.From)
			assert.Equal(test.to, terr.To)
			if test.expMsg != "" {
				assert.Equal(test.expMsg, err.Error())
			}
		})
	}
}

func TestValidateTransitionForwardProgressIsByOne(t *testing.T) {
	for _, from := range model.Stages() {
		for _, to := range model.Stages() {
			if model.ValidateTransition(from, to) != nil || to == model.StartStage {
				continue
			}
			assert.Equal(t, from+1, to, "legal transition %s -> %s", from, to)
		}
	}
}

func TestValidateTransitionRestartFromAnyStage(t *testing.T) {
	for _, from := range model.Stages() {
		if from == model.StartStage {
			continue
		}
		assert.NoError(t, model.ValidateTransition(from, model.StartStage), "restart from %s", from)
	}
}
