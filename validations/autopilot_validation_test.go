package validations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	domainAutopilot "github.com/AzielCF/az-pilot/autopilot/domain"
)

func TestValidateUpsertSettings(t *testing.T) {
	ctx := context.Background()

	valid := domainAutopilot.SettingsUpsertRequest{
		AccountID:     "acct-1",
		Platform:      "instagram",
		IntervalHours: 4,
	}
	assert.NoError(t, ValidateUpsertSettings(ctx, valid))

	missingAccount := valid
	missingAccount.AccountID = ""
	assert.Error(t, ValidateUpsertSettings(ctx, missingAccount))

	unknownPlatform := valid
	unknownPlatform.Platform = "myspace"
	assert.Error(t, ValidateUpsertSettings(ctx, unknownPlatform))

	zeroInterval := valid
	zeroInterval.IntervalHours = 0
	assert.Error(t, ValidateUpsertSettings(ctx, zeroInterval))
}

func TestValidateSubmitQueueItem(t *testing.T) {
	ctx := context.Background()

	valid := domainAutopilot.QueueSubmitRequest{
		Fingerprint: "fp-1",
		AccountID:   "acct-1",
		Platform:    "tiktok",
		CaptionText: "Fresh drop",
	}
	assert.NoError(t, ValidateSubmitQueueItem(ctx, valid))

	blankCaption := valid
	blankCaption.CaptionText = "   "
	assert.Error(t, ValidateSubmitQueueItem(ctx, blankCaption))

	noFingerprint := valid
	noFingerprint.Fingerprint = ""
	assert.Error(t, ValidateSubmitQueueItem(ctx, noFingerprint))
}

func TestValidatePair(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, ValidatePair(ctx, "acct-1", "youtube"))
	assert.Error(t, ValidatePair(ctx, "", "youtube"))
	assert.Error(t, ValidatePair(ctx, "acct-1", "friendster"))
}
