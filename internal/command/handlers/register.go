// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package handlers

import (
	"github.com/parlor/parlor/internal/command"
)

// RegisterAll binds every command in Kinds to h.
// Panics if any registration fails (indicates a programming error).
func RegisterAll(reg *command.Registry, h *Handlers) {
	mustRegister := func(kind command.Kind, err error) {
		if err != nil {
			panic("failed to register command " + string(kind) + ": " + err.Error())
		}
	}

	// Account lifecycle
	mustRegister(KindRegister, command.Handle(reg, h.Register))
	mustRegister(KindVerify, command.Handle(reg, h.Verify))
	mustRegister(KindLogin, command.Handle(reg, h.Login))
	mustRegister(KindRefresh, command.Handle(reg, h.RefreshSession))
	mustRegister(KindRequestReset, command.Handle(reg, h.RequestReset))
	mustRegister(KindCompleteReset, command.Handle(reg, h.CompleteReset))

	// Settings
	mustRegister(KindGetSettings, command.Handle(reg, h.GetSettings))
	mustRegister(KindUpdateSettings, command.Handle(reg, h.UpdateSettings))
	mustRegister(KindCreateSettings, command.Handle(reg, h.CreateSettings))

	// Profile
	mustRegister(KindCreateProfile, command.Handle(reg, h.CreateProfile))
	mustRegister(KindUpdateProfile, command.Handle(reg, h.UpdateProfile))
	mustRegister(KindGetProfile, command.Handle(reg, h.GetProfile))
}
