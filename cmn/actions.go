/*
 * Copyright (c) 2024-2025, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import "strings"

// ReservedPrefix marks action strings owned by the framework.
const ReservedPrefix = "skal-"

// Framework-reserved actions recognized and/or emitted by the core.
const (
	ActInit         = "skal-init"
	ActTerminate    = "skal-terminate"
	ActXoff         = "skal-xoff"
	ActXon          = "skal-xon"
	ActErrorDrop    = "skal-error-drop"
	ActBorn         = "skal-born"
	ActDied         = "skal-died"
	ActCreateGroup  = "skal-create-group"
	ActDestroyGroup = "skal-destroy-group"
	ActSubscribe    = "skal-subscribe"
	ActUnsubscribe  = "skal-unsubscribe"
	ActAlarm        = "skal-alarm"
)

func IsReservedAction(action string) bool { return strings.HasPrefix(action, ReservedPrefix) }
