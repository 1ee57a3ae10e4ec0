package domain

import "github.com/sharetube/syncwatch/pkg/randstr"

const idLength = 9

var idGenerator = randstr.New([]byte("abcdefghijklmnopqrstuvwxyz0123456789"))

func NewUserID() string {
	return "user_" + idGenerator.GenerateRandomString(idLength)
}

func NewRoomID() string {
	return "room_" + idGenerator.GenerateRandomString(idLength)
}
