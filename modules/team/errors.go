package team

import "errors"

var (
	ErrMemberNotFound   = errors.New("team.errors.member_not_found")
	ErrInviteNotFound   = errors.New("team.errors.invite_not_found")
	ErrAlreadyInvited   = errors.New("team.errors.already_invited")
	ErrAlreadyAccepted  = errors.New("team.errors.already_accepted")
	ErrCannotRemoveSelf = errors.New("team.errors.cannot_remove_self")
	ErrFailedToPersist  = errors.New("team.errors.failed_to_persist")
)
