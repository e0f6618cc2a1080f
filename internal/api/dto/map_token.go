package dto

import "time"

type MapTokenResponse struct {
	Token      string    `json:"token"`
	Expiration time.Time `json:"expiration"`
}
