// SPDX-License-Identifier: Apache-2.0

package doctor

import (
	"testing"

	"github.com/automa-saga/automa"
	"github.com/joomcode/errorx"
	"github.com/stretchr/testify/assert"
)

func TestGetInstructionsFromReport(t *testing.T) {
	assert.Empty(t, GetInstructionsFromReport(nil))

	plain := automa.StepFailureReport("start-scheduler",
		automa.WithError(errorx.IllegalState.New("boom")))
	assert.Empty(t, GetInstructionsFromReport(plain))

	flagged := automa.StepFailureReport("register-refresh-job",
		automa.WithError(errorx.IllegalState.New("bad interval")),
		automa.WithMetadata(map[string]string{"instructions": "set a positive interval"}))
	assert.Equal(t, "set a positive interval", GetInstructionsFromReport(flagged))

	// Instructions buried in a nested step report are still found.
	parent := automa.StepFailureReport("plugin-bootstrap",
		automa.WithError(errorx.IllegalState.New("bootstrap failed")))
	parent.StepReports = append(parent.StepReports, plain, flagged)
	assert.Equal(t, "set a positive interval", GetInstructionsFromReport(parent))
}
