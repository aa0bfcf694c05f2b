package runshow_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/stagetrack/internal/app/runshow"
	"github.com/slok/stagetrack/internal/log"
	"github.com/slok/stagetrack/internal/model"
	"github.com/slok/stagetrack/internal/storage/storagemock"
)

func TestNewService(t *testing.T) {
	_, err := runshow.NewService(runshow.ServiceConfig{})
	assert.Error(t, err)

	svc, err := runshow.NewService(runshow.ServiceConfig{Repository: &storagemock.MockRepository{}})
	assert.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestService_Run(t *testing.T) {
	const id = "01H2QWERTYASDFGZXCVBNMLKJH"
	run := &model.Run{ID: id, Name: "my-run", CreatedAt: time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)}

	tests := map[string]struct {
		mock   func(m *storagemock.MockRepository)
		req    runshow.Request
		expRun *model.Run
		expErr error
	}{
		"get run by name": {
			mock: func(m *storagemock.MockRepository) {
				m.On("GetRunByName", mock.Anything, "my-run").Once().Return(run, nil)
			},
			req:    runshow.Request{NameOrID: "my-run"},
			expRun: run,
		},
		"get run by ID falls back when name is not found": {
			mock: func(m *storagemock.MockRepository) {
				m.On("GetRunByName", mock.Anything, id).Once().Return(nil, model.ErrNotFound)
				m.On("GetRun", mock.Anything, id).Once().Return(run, nil)
			},
			req:    runshow.Request{NameOrID: id},
			expRun: run,
		},
		"a name that is not a ULID should not fall back to ID": {
			mock: func(m *storagemock.MockRepository) {
				m.On("GetRunByName", mock.Anything, "missing").Once().Return(nil, model.ErrNotFound)
			},
			req:    runshow.Request{NameOrID: "missing"},
			expErr: model.ErrNotFound,
		},
		"missing ID should be not found": {
			mock: func(m *storagemock.MockRepository) {
				m.On("GetRunByName", mock.Anything, id).Once().Return(nil, model.ErrNotFound)
				m.On("GetRun", mock.Anything, id).Once().Return(nil, fmt.Errorf("run %s: %w", id, model.ErrNotFound))
			},
			req:    runshow.Request{NameOrID: id},
			expErr: model.ErrNotFound,
		},
		"empty name should fail": {
			mock:   func(m *storagemock.MockRepository) {},
			req:    runshow.Request{},
			expErr: model.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			m := &storagemock.MockRepository{}
			test.mock(m)

			svc, err := runshow.NewService(runshow.ServiceConfig{Repository: m, Logger: log.Noop})
			require.NoError(err)

			got, err := svc.Run(context.Background(), test.req)

			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
			} else {
				require.NoError(err)
				assert.Equal(test.expRun, got)
			}

			m.AssertExpectations(t)
		})
	}
}
