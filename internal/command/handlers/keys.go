// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package handlers

// Message keys returned to callers. They are stable identifiers, not prose.
const (
	KeyRegistrationFieldsRequired = "registrationFieldsRequired"
	KeyRegistrationFieldsInvalid  = "registrationFieldsInvalid"
	KeyConflictUser               = "conflictUser"
	KeyRegistrationSuccess        = "registrationSuccess"

	KeyVerificationTokenRequired = "verificationTokenRequired"
	KeyInvalidVerificationToken  = "invalidVerificationToken"
	KeyVerificationTokenExpired  = "verificationTokenExpired"
	KeyEmailVerified             = "emailVerified"
	KeyUserAlreadyVerified       = "userAlreadyVerified"

	KeyEmailPasswordRequired  = "emailPasswordRequired"
	KeyInvalidCredentials     = "invalidCredentials"
	KeyVerifyEmailBeforeLogin = "verifyEmailBeforeLogin"
	KeyLoginSuccess           = "loginSuccess"

	KeyRefreshTokenRequired = "refreshTokenRequired"
	KeyInvalidRefreshToken  = "invalidRefreshToken"
	KeySessionRefreshed     = "sessionRefreshed"

	KeyEmailRequired                     = "emailRequired"
	KeyAccountExistPasswordResetLinkSent = "accountExistPasswordResetLinkSent"

	KeyTokenAndNewPasswordRequired     = "tokenAndNewPasswordRequired"
	KeyInvalidTokenOrResetTokenExpired = "invalidTokenOrResetTokenExpired"
	KeyPasswordTooShort                = "passwordTooShort"
	KeyPasswordSuccessfullyReset       = "passwordSuccessfullyReset"

	KeyAccountIDRequired  = "accountIdRequired"
	KeyAccountNotFound    = "accountNotFound"
	KeyAccountNotVerified = "accountNotVerified"

	KeySettingsNotFound      = "settingsNotFound"
	KeySettingsAlreadyExist  = "settingsAlreadyExist"
	KeySettingsFieldsInvalid = "settingsFieldsInvalid"
	KeySettingsCreated       = "settingsCreated"
	KeySettingsUpdated       = "settingsUpdated"
	KeySettingsFetched       = "settingsFetched"

	KeyProfileNotFound      = "profileNotFound"
	KeyProfileAlreadyExists = "profileAlreadyExists"
	KeyProfileFieldsInvalid = "profileFieldsInvalid"
	KeyProfileCreated       = "profileCreated"
	KeyProfileUpdated       = "profileUpdated"
	KeyProfileFetched       = "profileFetched"
)
