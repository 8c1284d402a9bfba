package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	BaseURL     = "http://localhost:8080"
	WSURL       = "ws://localhost:8080/ws"
	DeviceCount = 50 // Start small; every message fans out to DeviceCount-1 mailboxes.
	MsgCount    = 20 // Messages per device
	DrainLimit  = 25 // Poll batch size
)

func main() {
	log.Printf("STARTING LOAD TEST: %d devices, %d messages each...", DeviceCount, MsgCount)

	// 1. Register everyone up front so every broadcast sees a full fan-out.
	for i := 0; i < DeviceCount; i++ {
		if err := register(deviceMac(i)); err != nil {
			log.Fatalf("register failed [%s]: %v", deviceMac(i), err)
		}
	}

	// 2. Every device broadcasts and polls concurrently.
	var wg sync.WaitGroup
	for i := 0; i < DeviceCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runDevice(id)
		}(i)
	}
	wg.Wait()

	// 3. Final drain pass so the report counts everything delivered.
	total := 0
	for i := 0; i < DeviceCount; i++ {
		total += drainAll(deviceMac(i))
	}
	log.Printf("LOAD TEST COMPLETE: drained %d leftover messages", total)
}

func deviceMac(id int) string {
	return fmt.Sprintf("AA:BB:CC:00:%02X:%02X", id/256, id%256)
}

func runDevice(id int) {
	mac := deviceMac(id)

	// Listen on the live feed while sending, like a real device would.
	done := make(chan struct{})
	go listenFeed(mac, done)
	defer close(done)

	for i := 0; i < MsgCount; i++ {
		err := postForm("/device/message/receive", url.Values{
			"macAddress": {mac},
			"message":    {fmt.Sprintf("load test msg %d from %s", i, mac)},
		})
		if err != nil {
			log.Printf("send failed [%s]: %v", mac, err)
			return
		}

		// Drain a batch between sends to exercise concurrent drains.
		drain(mac, DrainLimit)

		// Small sleep to avoid an instant localhost bottleneck.
		time.Sleep(10 * time.Millisecond)
	}
}

func listenFeed(mac string, done chan struct{}) {
	conn, _, err := websocket.DefaultDialer.Dial(WSURL+"?macAddress="+url.QueryEscape(mac), nil)
	if err != nil {
		log.Printf("ws connect failed [%s]: %v", mac, err)
		return
	}
	defer conn.Close()

	go func() {
		<-done
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func register(mac string) error {
	return postForm("/device/register", url.Values{"macAddress": {mac}})
}

func drain(mac string, limit int) int {
	resp, err := http.PostForm(BaseURL+"/device/message/pending/get", url.Values{
		"macAddress": {mac},
		"limit":      {fmt.Sprint(limit)},
	})
	if err != nil {
		log.Printf("drain failed [%s]: %v", mac, err)
		return 0
	}
	defer resp.Body.Close()

	var data struct {
		Count int `json:"count"`
	}
	json.NewDecoder(resp.Body).Decode(&data)
	return data.Count
}

func drainAll(mac string) int {
	total := 0
	for {
		n := drain(mac, DrainLimit)
		total += n
		if n == 0 {
			return total
		}
	}
}

func postForm(endpoint string, form url.Values) error {
	resp, err := http.PostForm(BaseURL+endpoint, form)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
