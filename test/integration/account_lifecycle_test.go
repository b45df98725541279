// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"net/url"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/parlor/parlor/internal/account"
	"github.com/parlor/parlor/internal/command/handlers"
	"github.com/parlor/parlor/internal/mail"
)

var _ = Describe("Account lifecycle", func() {
	Describe("registration", func() {
		It("creates an unverified account and mails a verification link", func() {
			code, res := call(http.MethodPost, "/auth/register", registerBody("ada@example.com", "ada", "Passw0rd!"), "")

			Expect(code).To(Equal(http.StatusCreated))
			Expect(res.Message).To(Equal(handlers.KeyRegistrationSuccess))

			var data handlers.RegisterResult
			Expect(json.Unmarshal(res.Data, &data)).To(Succeed())
			Expect(data.Account.Email).To(Equal("ada@example.com"))
			Expect(data.Account.IsVerified).To(BeFalse())

			msg, ok := env.mail.Last()
			Expect(ok).To(BeTrue())
			Expect(msg.Template).To(Equal(mail.TemplateVerifyEmail))
			Expect(msg.To).To(Equal("ada@example.com"))

			stored, err := env.accounts.FindByEmail(env.ctx, "ada@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).NotTo(BeNil())
			Expect(stored.PasswordHash).NotTo(ContainSubstring("Passw0rd!"))
			Expect(stored.HasPendingToken(account.PurposeVerify)).To(BeTrue())
			Expect(stored.PendingToken.Value).NotTo(Equal(lastToken()))
		})

		It("rejects a second account whose email differs only in case", func() {
			code, _ := call(http.MethodPost, "/auth/register", registerBody("ada@example.com", "ada", "Passw0rd!"), "")
			Expect(code).To(Equal(http.StatusCreated))

			code, res := call(http.MethodPost, "/auth/register", registerBody("ADA@example.com", "ada2", "Passw0rd!"), "")
			Expect(code).To(Equal(http.StatusConflict))
			Expect(res.Message).To(Equal(handlers.KeyConflictUser))
			Expect(res.Error).To(Equal("CONFLICT"))
		})
	})

	Describe("verification and login", func() {
		It("refuses login until the email is verified", func() {
			call(http.MethodPost, "/auth/register", registerBody("ada@example.com", "ada", "Passw0rd!"), "")

			code, res := call(http.MethodPost, "/auth/login", loginBody("ada@example.com", "Passw0rd!"), "")
			Expect(code).To(Equal(http.StatusForbidden))
			Expect(res.Message).To(Equal(handlers.KeyVerifyEmailBeforeLogin))

			code, res = call(http.MethodPost, "/auth/verify", `{"token":"`+lastToken()+`"}`, "")
			Expect(code).To(Equal(http.StatusOK))
			Expect(res.Message).To(Equal(handlers.KeyEmailVerified))

			code, res = call(http.MethodPost, "/auth/login", loginBody("ada@example.com", "Passw0rd!"), "")
			Expect(code).To(Equal(http.StatusOK))
			Expect(res.Message).To(Equal(handlers.KeyLoginSuccess))
		})

		It("creates default settings on verification", func() {
			sess := signIn("ada@example.com", "ada")

			code, res := call(http.MethodGet, "/settings", "", sess.AccessToken)
			Expect(code).To(Equal(http.StatusOK))
			Expect(res.Message).To(Equal(handlers.KeySettingsFetched))

			var data handlers.SettingsResult
			Expect(json.Unmarshal(res.Data, &data)).To(Succeed())
			Expect(data.Settings.Theme).To(BeEquivalentTo("light"))
			Expect(data.Account).NotTo(BeNil())
			Expect(data.Account.IsVerified).To(BeTrue())
		})

		It("reports a wrong password and an unknown email the same way", func() {
			signIn("ada@example.com", "ada")

			code, wrong := call(http.MethodPost, "/auth/login", loginBody("ada@example.com", "nope-nope"), "")
			Expect(code).To(Equal(http.StatusUnauthorized))
			code, unknown := call(http.MethodPost, "/auth/login", loginBody("ghost@example.com", "Passw0rd!"), "")
			Expect(code).To(Equal(http.StatusUnauthorized))
			Expect(wrong.Message).To(Equal(unknown.Message))
		})

		It("exchanges a refresh token for a new pair", func() {
			sess := signIn("ada@example.com", "ada")

			code, res := call(http.MethodPost, "/auth/refresh", `{"refreshToken":"`+sess.RefreshToken+`"}`, "")
			Expect(code).To(Equal(http.StatusOK))
			Expect(res.Message).To(Equal(handlers.KeySessionRefreshed))

			code, _ = call(http.MethodPost, "/auth/refresh", `{"refreshToken":"`+sess.AccessToken+`"}`, "")
			Expect(code).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("password reset", func() {
		It("replaces the password and consumes the token", func() {
			signIn("ada@example.com", "ada")
			env.mail.Reset()

			code, res := call(http.MethodPost, "/auth/forgot-password", `{"email":"ada@example.com"}`, "")
			Expect(code).To(Equal(http.StatusOK))
			Expect(res.Message).To(Equal(handlers.KeyAccountExistPasswordResetLinkSent))

			msg, ok := env.mail.Last()
			Expect(ok).To(BeTrue())
			Expect(msg.Template).To(Equal(mail.TemplateForgetPassword))
			token := lastToken()

			code, res = call(http.MethodPost, "/auth/update-password",
				`{"token":"`+token+`","newPassword":"N3wPassw0rd!"}`, "")
			Expect(code).To(Equal(http.StatusOK))
			Expect(res.Message).To(Equal(handlers.KeyPasswordSuccessfullyReset))

			code, _ = call(http.MethodPost, "/auth/login", loginBody("ada@example.com", "Passw0rd!"), "")
			Expect(code).To(Equal(http.StatusUnauthorized))
			code, _ = call(http.MethodPost, "/auth/login", loginBody("ada@example.com", "N3wPassw0rd!"), "")
			Expect(code).To(Equal(http.StatusOK))

			code, res = call(http.MethodPost, "/auth/update-password",
				`{"token":"`+token+`","newPassword":"An0therOne!"}`, "")
			Expect(code).To(Equal(http.StatusNotFound))
			Expect(res.Message).To(Equal(handlers.KeyInvalidTokenOrResetTokenExpired))
		})

		It("answers unknown addresses without sending mail", func() {
			code, res := call(http.MethodPost, "/auth/forgot-password", `{"email":"ghost@example.com"}`, "")
			Expect(code).To(Equal(http.StatusOK))
			Expect(res.Message).To(Equal(handlers.KeyAccountExistPasswordResetLinkSent))
			Expect(env.mail.Messages()).To(BeEmpty())
		})

		It("does not accept a verification token for a reset", func() {
			call(http.MethodPost, "/auth/register", registerBody("ada@example.com", "ada", "Passw0rd!"), "")

			code, _ := call(http.MethodPost, "/auth/update-password",
				`{"token":"`+lastToken()+`","newPassword":"N3wPassw0rd!"}`, "")
			Expect(code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("settings and profile", func() {
		var access string

		BeforeEach(func() {
			access = signIn("ada@example.com", "ada").AccessToken
		})

		It("updates settings with optimistic versioning", func() {
			code, res := call(http.MethodPatch, "/settings", `{"theme":"dark","soundEnabled":true}`, access)
			Expect(code).To(Equal(http.StatusOK))
			Expect(res.Message).To(Equal(handlers.KeySettingsUpdated))

			var version int64
			Expect(env.pool.QueryRow(env.ctx, "SELECT version FROM settings").Scan(&version)).To(Succeed())
			Expect(version).To(BeNumerically(">=", 1))

			code, res = call(http.MethodPatch, "/settings", `{"theme":"sepia"}`, access)
			Expect(code).To(Equal(http.StatusBadRequest))
			Expect(res.Message).To(Equal(handlers.KeySettingsFieldsInvalid))
		})

		It("rejects creating settings twice", func() {
			code, res := call(http.MethodPost, "/settings", `{"theme":"dark"}`, access)
			Expect(code).To(Equal(http.StatusConflict))
			Expect(res.Message).To(Equal(handlers.KeySettingsAlreadyExist))
		})

		It("creates, updates and reads a profile", func() {
			code, res := call(http.MethodGet, "/profile", "", access)
			Expect(code).To(Equal(http.StatusNotFound))
			Expect(res.Message).To(Equal(handlers.KeyProfileNotFound))

			code, res = call(http.MethodPost, "/profile",
				`{"firstName":" Ada ","dateOfBirth":"1815-12-10","socialLinks":{"github":"https://github.com/ada"}}`, access)
			Expect(code).To(Equal(http.StatusCreated))
			Expect(res.Message).To(Equal(handlers.KeyProfileCreated))

			code, _ = call(http.MethodPost, "/profile", `{"firstName":"Ada"}`, access)
			Expect(code).To(Equal(http.StatusConflict))

			code, res = call(http.MethodPatch, "/profile", `{"bio":"Analyst"}`, access)
			Expect(code).To(Equal(http.StatusOK))
			Expect(res.Message).To(Equal(handlers.KeyProfileUpdated))

			code, res = call(http.MethodGet, "/profile", "", access)
			Expect(code).To(Equal(http.StatusOK))
			var data handlers.ProfileResult
			Expect(json.Unmarshal(res.Data, &data)).To(Succeed())
			Expect(*data.Profile.FirstName).To(Equal("Ada"))
			Expect(*data.Profile.Bio).To(Equal("Analyst"))
			Expect(data.Profile.DateOfBirth.Format("2006-01-02")).To(Equal("1815-12-10"))
			Expect(data.Profile.SocialLinks).To(HaveKeyWithValue("github", "https://github.com/ada"))
		})

		It("requires a bearer token", func() {
			code, _ := call(http.MethodGet, "/profile", "", "")
			Expect(code).To(Equal(http.StatusUnauthorized))
		})
	})

	It("serves the GET verify link exactly as mailed", func() {
		call(http.MethodPost, "/auth/register", registerBody("ada@example.com", "ada", "Passw0rd!"), "")
		msg, ok := env.mail.Last()
		Expect(ok).To(BeTrue())

		link, err := url.Parse(msg.Payload[mail.KeyURL])
		Expect(err).NotTo(HaveOccurred())
		Expect(link.Path).To(Equal(mail.VerifyPath))

		code, res := call(http.MethodGet, link.Path+"?"+link.RawQuery, "", "")
		Expect(code).To(Equal(http.StatusOK))
		Expect(res.Message).To(Equal(handlers.KeyEmailVerified))

		code, res = call(http.MethodGet, link.Path+"?"+link.RawQuery, "", "")
		Expect(code).To(Equal(http.StatusNotFound))
		Expect(res.Message).To(Equal(handlers.KeyInvalidVerificationToken))
	})
})
