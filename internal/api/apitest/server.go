// Package apitest provides an in-memory gacha record API for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rickgao/warplog/internal/api"
	"github.com/rickgao/warplog/internal/model"
)

// DefaultAuthKey is the authkey the server accepts unless changed.
const DefaultAuthKey = "test-authkey"

// Server serves getGachaLog and getLdGachaLog from per-pool record lists.
type Server struct {
	*httptest.Server

	mu             sync.Mutex
	authKey        string
	regionTimeZone int
	maxPageSize    int
	retcode        int
	records        map[model.GachaType][]model.GachaRecordItem
	requests       map[model.GachaType]int
}

// NewServer starts a server and closes it when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		authKey:        DefaultAuthKey,
		regionTimeZone: 8,
		maxPageSize:    20,
		records:        make(map[model.GachaType][]model.GachaRecordItem),
		requests:       make(map[model.GachaType]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Add stores items, keeping each pool sorted newest first.
func (s *Server) Add(items ...model.GachaRecordItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		s.records[item.GachaType] = append(s.records[item.GachaType], item)
	}
	for pool := range s.records {
		list := s.records[pool]
		sort.Slice(list, func(i, j int) bool {
			return model.CompareID(list[i].ID, list[j].ID) > 0
		})
	}
}

// SetRegionTimeZone sets the region_time_zone reported by every page.
func (s *Server) SetRegionTimeZone(tz int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regionTimeZone = tz
}

// SetRetcode forces every response to carry retcode. Zero restores normal
// behaviour.
func (s *Server) SetRetcode(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retcode = code
}

// Requests returns how many requests hit pool.
func (s *Server) Requests(pool model.GachaType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[pool]
}

// TotalRequests returns the number of requests across all pools.
func (s *Server) TotalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.requests {
		total += n
	}
	return total
}

// CaptureURL returns a capture URL accepted by the server.
func (s *Server) CaptureURL(gameBiz string) string {
	q := url.Values{}
	q.Set("authkey_ver", "1")
	q.Set("sign_type", "2")
	q.Set("auth_appid", "webview_gacha")
	q.Set("lang", "en")
	q.Set("authkey", s.authKey)
	q.Set("game_biz", gameBiz)
	return "https://gs.hoyoverse.com/hkrpg/event/e20211215gacha-v2/index.html?" + q.Encode()
}

// Client returns an api.Client routed to the server for both regions.
func (s *Server) Client(opts ...api.ClientOption) *api.Client {
	opts = append([]api.ClientOption{
		api.WithBaseURL(api.GameBizCN, s.URL),
		api.WithBaseURL(api.GameBizGlobal, s.URL),
	}, opts...)
	return api.NewClient(opts...)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := r.URL.Query()
	pool := model.GachaType(q.Get("gacha_type"))
	s.requests[pool]++

	if s.retcode != 0 {
		writeJSON(w, map[string]any{"retcode": s.retcode, "message": "forced", "data": nil})
		return
	}
	if q.Get("authkey") != s.authKey {
		writeJSON(w, map[string]any{"retcode": api.RetcodeInvalidAuthKey, "message": "authkey error", "data": nil})
		return
	}

	size, _ := strconv.Atoi(q.Get("size"))
	if size <= 0 || size > s.maxPageSize {
		size = s.maxPageSize
	}
	endID := q.Get("end_id")

	list := []api.GachaLogItem{}
	for _, item := range s.records[pool] {
		if endID != "" && endID != "0" && model.CompareID(item.ID, endID) >= 0 {
			continue
		}
		if len(list) == size {
			break
		}
		list = append(list, toAPI(item))
	}

	writeJSON(w, map[string]any{
		"retcode": 0,
		"message": "OK",
		"data": map[string]any{
			"page":             "1",
			"size":             strconv.Itoa(size),
			"list":             list,
			"region":           "prod_official_asia",
			"region_time_zone": s.regionTimeZone,
		},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func toAPI(item model.GachaRecordItem) api.GachaLogItem {
	return api.GachaLogItem{
		UID:       item.UID,
		GachaID:   item.GachaID,
		GachaType: string(item.GachaType),
		ItemID:    item.ItemID,
		Count:     item.Count,
		Time:      item.Time,
		Name:      item.Name,
		Lang:      item.Lang,
		ItemType:  item.ItemType,
		RankType:  item.RankType,
		ID:        item.ID,
	}
}

// Record builds a deterministic record for pool with the given numeric id.
// Its time advances one minute per id from a fixed origin.
func Record(uid string, pool model.GachaType, id int64) model.GachaRecordItem {
	origin := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return model.GachaRecordItem{
		ID:        strconv.FormatInt(id, 10),
		UID:       uid,
		GachaID:   "2003",
		GachaType: pool,
		ItemID:    fmt.Sprintf("2%04d", id%10000),
		Count:     "1",
		Time:      origin.Add(time.Duration(id%100000) * time.Minute).Format(model.TimeLayout),
		Name:      "Item " + strconv.FormatInt(id, 10),
		Lang:      "en",
		ItemType:  "Light Cone",
		RankType:  "3",
	}
}

// Records builds n records for pool with ids first, first+step, ...
func Records(uid string, pool model.GachaType, first, step int64, n int) []model.GachaRecordItem {
	out := make([]model.GachaRecordItem, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Record(uid, pool, first+int64(i)*step))
	}
	return out
}
