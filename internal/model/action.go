// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

// Action is executed before, during or after a scan step.
// Implementations: *ChannelAction, *ShellAction.
type Action interface {
	// ActionType returns the schema type name written as xsi:type.
	ActionType() string
	isAction()
}

// ChannelOperation selects how a ChannelAction talks to its channel.
type ChannelOperation string

const (
	OperationPut       ChannelOperation = "put"
	OperationPutq      ChannelOperation = "putq"
	OperationWait      ChannelOperation = "wait"
	OperationWaitRegex ChannelOperation = "waitREGEX"
	OperationWaitOr    ChannelOperation = "waitOR"
	OperationWaitAnd   ChannelOperation = "waitAND"
)

// ChannelAction writes to or waits on a channel.
type ChannelAction struct {
	Channel   string
	Value     string
	Operation ChannelOperation
	Type      ValueType
	Timeout   *float64
	Delay     *float64
}

// NewChannelAction returns a put action with schema defaults applied.
func NewChannelAction(channel, value string) *ChannelAction {
	return &ChannelAction{
		Channel:   channel,
		Value:     value,
		Operation: OperationPut,
		Type:      ValueTypeString,
	}
}

func (*ChannelAction) ActionType() string { return "ChannelAction" }
func (*ChannelAction) isAction()          {}

// ShellAction runs a shell command.
type ShellAction struct {
	Command        string
	ExitValue      int
	CheckExitValue bool
}

// NewShellAction returns a shell action with schema defaults applied.
func NewShellAction(command string) *ShellAction {
	return &ShellAction{Command: command, CheckExitValue: true}
}

func (*ShellAction) ActionType() string { return "ShellAction" }
func (*ShellAction) isAction()          {}
