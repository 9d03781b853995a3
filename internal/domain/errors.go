package domain

import "errors"

var (
	// ErrInvalidState is returned when a status transition is not permitted from the current status.
	ErrInvalidState = errors.New("invalid competition state for this operation")
	// ErrNotJoinable is returned when joining a finished competition.
	ErrNotJoinable = errors.New("competition is not joinable")
	// ErrCompetitionFull is returned when a new participant would exceed the participant limit.
	ErrCompetitionFull = errors.New("competition is full")
	// ErrStaleQuestion is returned for answers that do not target the question at the cursor.
	ErrStaleQuestion = errors.New("question is not the current question")
	// ErrDuplicateAnswer is returned for a second answer to the same question by the same user.
	ErrDuplicateAnswer = errors.New("answer already submitted for this question")
	// ErrMalformedMessage is returned when an inbound message cannot be decoded or validated.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrCompetitionNotFound indicates the competition does not exist.
	ErrCompetitionNotFound = errors.New("competition not found")
	// ErrQuestionNotFound indicates the question content could not be loaded.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrParticipantNotFound is returned when a user acts in a competition they never joined.
	ErrParticipantNotFound = errors.New("participant not found in competition")
	// ErrUserNotFound indicates the user profile does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrNotJoined is returned for room messages sent before join_competition.
	ErrNotJoined = errors.New("connection has not joined a competition")
	// ErrAlreadyJoined is returned when a connection tries to join a second competition.
	ErrAlreadyJoined = errors.New("connection already joined another competition")
)
