package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/fatih/color"
)

const (
	baseURL = "http://localhost:3000/api"
	userId  = "a2b94f4c-b674-433b-90be-65a91a37e7a3"
)

// Simplified DTOs for the script
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type topicData struct {
	Id string `json:"id"`
}

type sessionData struct {
	SessionId     string `json:"session_id"`
	FirstQuestion string `json:"first_question"`
}

type turnData struct {
	TurnState    string `json:"turn_state"`
	Reply        string `json:"reply"`
	Score        *int   `json:"score"`
	NextQuestion string `json:"next_question"`
	Ended        bool   `json:"ended"`
}

var (
	tutorColor = color.New(color.FgCyan)
	userColor  = color.New(color.FgGreen)
	metaColor  = color.New(color.FgYellow)
)

func main() {
	fmt.Println("=== Tutor Chat Simulation Client ===")
	fmt.Printf("Connecting as User: %s\n", userId)

	topicId, err := createTopic()
	if err != nil {
		log.Fatalf("Failed to create topic: %v", err)
	}
	metaColor.Printf("Topic Created: %s\n", topicId)

	session, err := startSession(topicId)
	if err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}
	metaColor.Printf("Session Started: %s\n", session.SessionId)
	tutorColor.Printf("TUTOR: %s\n", session.FirstQuestion)

	script := []string{
		"A goroutine is a lightweight thread managed by the Go runtime scheduler.",
		"next question please",
		"I think it means a channel can only be used for sending or receiving?",
		"wait, can you explain what direction means here?",
		"A <-chan can only be received from and a chan<- can only be sent to.",
		"I'm done for today, thanks!",
	}

	for _, text := range script {
		userColor.Printf("\nUSER: %s\n", text)

		start := time.Now()
		turn, err := sendTurn(session.SessionId, text)
		elapsed := time.Since(start)

		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}

		tutorColor.Printf("TUTOR (%v): %s\n", elapsed.Round(time.Millisecond), turn.Reply)
		if turn.Score != nil {
			metaColor.Printf("  [score: %d, state: %s]\n", *turn.Score, turn.TurnState)
		} else {
			metaColor.Printf("  [state: %s]\n", turn.TurnState)
		}

		if turn.Ended {
			metaColor.Println("Session ended.")
			break
		}
	}
}

func createTopic() (string, error) {
	body := map[string]interface{}{
		"name": "Go concurrency",
		"questions": []map[string]interface{}{
			{"text": "What is a goroutine?", "type": "short_answer", "difficulty": 1},
			{"text": "Explain what a directional channel type means.", "type": "explanation", "difficulty": 2},
		},
	}

	var data topicData
	if err := post("/topic/v1", body, &data); err != nil {
		return "", err
	}
	return data.Id, nil
}

func startSession(topicId string) (*sessionData, error) {
	var data sessionData
	if err := post("/session/v1", map[string]interface{}{"topic_id": topicId}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func sendTurn(sessionId, text string) (*turnData, error) {
	var data turnData
	if err := post("/session/v1/"+sessionId+"/turn", map[string]interface{}{"message": text}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func post(path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", userId)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(raw))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return err
	}
	return json.Unmarshal(env.Data, out)
}
