package validations

import (
	"context"
	"errors"
	"strings"

	domainAutopilot "github.com/AzielCF/az-pilot/autopilot/domain"
	pkgError "github.com/AzielCF/az-pilot/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var validPlatforms = []any{
	string(domainAutopilot.PlatformInstagram),
	string(domainAutopilot.PlatformTikTok),
	string(domainAutopilot.PlatformYouTube),
	string(domainAutopilot.PlatformX),
}

func ValidateUpsertSettings(ctx context.Context, request domainAutopilot.SettingsUpsertRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.AccountID, validation.Required),
		validation.Field(&request.Platform, validation.Required, validation.In(validPlatforms...)),
		validation.Field(&request.IntervalHours, validation.Required, validation.Min(0.1)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateSubmitQueueItem(ctx context.Context, request domainAutopilot.QueueSubmitRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Fingerprint, validation.Required),
		validation.Field(&request.AccountID, validation.Required),
		validation.Field(&request.Platform, validation.Required, validation.In(validPlatforms...)),
		validation.Field(&request.CaptionText, validation.Required, validation.By(notBlank)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidatePair(ctx context.Context, accountID, platform string) error {
	err := validation.Errors{
		"account_id": validation.Validate(accountID, validation.Required),
		"platform":   validation.Validate(platform, validation.Required, validation.In(validPlatforms...)),
	}.Filter()

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func notBlank(value any) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New("must not be blank")
	}
	return nil
}
