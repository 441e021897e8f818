// Package docs registers the OpenAPI description served at /swagger/doc.json.
// Keep in sync with the @Router annotations in handlers.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/api/auth/register": {"post": {"tags": ["auth"], "summary": "Register a player", "responses": {"201": {"description": "player"}}}},
        "/api/auth/login": {"post": {"tags": ["auth"], "summary": "Log in and receive a bearer token", "responses": {"200": {"description": "token and player"}}}},
        "/api/players/{playerID}": {"get": {"tags": ["players"], "summary": "Player info", "responses": {"200": {"description": "player"}}}},
        "/api/players/{playerID}/profile": {"get": {"tags": ["players"], "summary": "Player with recent matches and rating history", "responses": {"200": {"description": "profile"}}}},
        "/api/players/me/avatar": {"post": {"tags": ["players"], "summary": "Upload the current player's avatar", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "player"}}}},
        "/api/rooms": {"get": {"tags": ["rooms"], "summary": "Open rooms", "responses": {"200": {"description": "rooms"}}}},
        "/api/rooms/join": {"post": {"tags": ["rooms"], "summary": "Join or create a waiting room", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "room"}}}},
        "/api/rooms/{roomID}": {"get": {"tags": ["rooms"], "summary": "Room state", "responses": {"200": {"description": "room"}}}},
        "/api/rooms/{roomID}/ready": {"post": {"tags": ["rooms"], "summary": "Toggle ready flag", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "room"}}}},
        "/api/rooms/{roomID}/leave": {"post": {"tags": ["rooms"], "summary": "Leave a room", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "room"}}}},
        "/api/rooms/{roomID}/match": {
            "get": {"tags": ["rooms"], "summary": "Current match of a room", "responses": {"200": {"description": "match"}}},
            "post": {"tags": ["rooms"], "summary": "Split a ready room into two balanced teams", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "teams"}}}
        },
        "/api/bp/start": {"post": {"tags": ["bp"], "summary": "Open the ban/pick session for a matched room", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "session"}}}},
        "/api/bp/{bpID}": {"get": {"tags": ["bp"], "summary": "Ban/pick session state", "responses": {"200": {"description": "session"}}}},
        "/api/bp/{bpID}/vote": {"post": {"tags": ["bp"], "summary": "Vote on the current ban/pick step", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "vote outcome"}}}},
        "/api/matches/{matchID}": {"get": {"tags": ["matches"], "summary": "Match state", "responses": {"200": {"description": "match"}}}},
        "/api/matches/{matchID}/live": {"put": {"tags": ["matches"], "summary": "Save in-progress score and stats", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "match"}}}},
        "/api/matches/{matchID}/finish": {"post": {"tags": ["matches"], "summary": "Record the final result and update ratings", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "match and rating changes"}}}},
        "/api/history/players/{playerID}": {"get": {"tags": ["history"], "summary": "Recent matches of a player", "responses": {"200": {"description": "matches"}}}},
        "/api/history/players/{playerID}/rating": {"get": {"tags": ["history"], "summary": "Rating history of a player", "responses": {"200": {"description": "rating changes"}}}},
        "/api/history/ranking": {"get": {"tags": ["history"], "summary": "Top players by rating", "responses": {"200": {"description": "ranking"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Scrim System API",
	Description:      "5v5 scrim lobby: team balancing, map ban/pick and Elo ratings.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
