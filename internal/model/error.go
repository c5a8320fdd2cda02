package model

import "errors"

var ErrorInvalidUsernameOrPassword = errors.New("invalid username or password")
var ErrorUserNotFound = errors.New("user not found")
var ErrorHandleTaken = errors.New("handle already taken")
var ErrorInvalidCredential = errors.New("invalid credential")
var ErrorPasswordTooShort = errors.New("password too short")
var ErrorInvalidUserParams = errors.New("invalid user parameters")
var ErrorInvalidToken = errors.New("invalid token")

var ErrorEmptyMessage = errors.New("empty message")
var ErrorMessageTooLarge = errors.New("message exceeds quota")

// ErrorStorageFailure wraps any store error that survived retries.
var ErrorStorageFailure = errors.New("storage failure")
var ErrorVersionConflict = errors.New("version conflict")
