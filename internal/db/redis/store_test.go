package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/silverline/internal/db"
)

func isDBError(err error) bool {
	var dbe *db.Error
	return errors.As(err, &dbe)
}

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	err := s.Ping(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !isDBError(err) {
		t.Errorf("expected db.Error, got %T", err)
	}
}

func TestNewStore_RequiresAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error for empty addrs")
	}
}

// --- hash.go tests ---

func TestHSet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "HSET" && cmd[1] == "mykey"
		})).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c)
	err := s.HSet(context.Background(), "mykey", map[string]string{"f1": "v1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHSet_Empty(t *testing.T) {
	s := NewStoreForTest(nil) // client not called
	if err := s.HSet(context.Background(), "mykey", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHSet_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "HSET"
		})).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	err := s.HSet(context.Background(), "mykey", map[string]string{"f": "v"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !isDBError(err) {
		t.Errorf("expected db.Error, got %T", err)
	}
}

func TestHGetAll_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "mykey")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
			"f1": mock.RedisString("v1"),
			"f2": mock.RedisString("v2"),
		})))

	s := NewStoreForTest(c)
	m, err := s.HGetAll(context.Background(), "mykey")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m["f1"] != "v1" || m["f2"] != "v2" {
		t.Errorf("unexpected map: %v", m)
	}
}

func TestHGetAll_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "mykey")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if _, err := s.HGetAll(context.Background(), "mykey"); err == nil {
		t.Fatal("expected error")
	}
}

func TestHIncrBy_PipelinesIncrementsExpireAndRead(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var sent [][]string
	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmds ...rueidis.Completed) []rueidis.RedisResult {
			for _, cmd := range cmds {
				sent = append(sent, cmd.Commands())
			}
			return []rueidis.RedisResult{
				mock.Result(mock.RedisInt64(3)),
				mock.Result(mock.RedisInt64(600)),
				mock.Result(mock.RedisInt64(1)),
				mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
					"text": mock.RedisString("3"),
					"cost": mock.RedisString("600"),
				})),
			}
		})

	s := NewStoreForTest(c)
	m, err := s.HIncrBy(context.Background(), "k", []db.FieldIncr{
		{Field: "text", By: 1},
		{Field: "cost", By: 200},
	}, 48*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m["text"] != "3" || m["cost"] != "600" {
		t.Errorf("unexpected map: %v", m)
	}

	if len(sent) != 4 {
		t.Fatalf("expected 4 commands, got %d: %v", len(sent), sent)
	}
	if sent[0][0] != "HINCRBY" || sent[0][2] != "text" || sent[0][3] != "1" {
		t.Errorf("unexpected first command: %v", sent[0])
	}
	if sent[1][0] != "HINCRBY" || sent[1][2] != "cost" || sent[1][3] != "200" {
		t.Errorf("unexpected second command: %v", sent[1])
	}
	if sent[2][0] != "EXPIRE" || sent[2][2] != "172800" || sent[2][3] != "NX" {
		t.Errorf("unexpected expire command: %v", sent[2])
	}
	if sent[3][0] != "HGETALL" {
		t.Errorf("unexpected read command: %v", sent[3])
	}
}

func TestHIncrBy_NoTTLSkipsExpire(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var count int
	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmds ...rueidis.Completed) []rueidis.RedisResult {
			count = len(cmds)
			return []rueidis.RedisResult{
				mock.Result(mock.RedisInt64(1)),
				mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
					"text": mock.RedisString("1"),
				})),
			}
		})

	s := NewStoreForTest(c)
	if _, err := s.HIncrBy(context.Background(), "k", []db.FieldIncr{{Field: "text", By: 1}}, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 commands without TTL, got %d", count)
	}
}

func TestHIncrBy_IncrementError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.ErrorResult(context.DeadlineExceeded),
			mock.Result(mock.RedisInt64(1)),
			mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{})),
		})

	s := NewStoreForTest(c)
	_, err := s.HIncrBy(context.Background(), "k", []db.FieldIncr{{Field: "text", By: 1}}, time.Hour)
	if err == nil {
		t.Fatal("expected error")
	}
	var dbe *db.Error
	if !errors.As(err, &dbe) || dbe.Op != db.OpHIncrBy {
		t.Errorf("expected HINCRBY db.Error, got %v", err)
	}
}

func TestHIncrBy_ExpireError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(1)),
			mock.ErrorResult(context.DeadlineExceeded),
			mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{})),
		})

	s := NewStoreForTest(c)
	_, err := s.HIncrBy(context.Background(), "k", []db.FieldIncr{{Field: "text", By: 1}}, time.Hour)
	var dbe *db.Error
	if !errors.As(err, &dbe) || dbe.Op != db.OpExpire {
		t.Errorf("expected EXPIRE db.Error, got %v", err)
	}
}

// --- kv.go tests ---

func TestExpire_NX(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("EXPIRE", "mykey", "60", "NX")).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c)
	if err := s.Expire(context.Background(), "mykey", time.Minute, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExpire_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("EXPIRE", "mykey", "60")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	err := s.Expire(context.Background(), "mykey", time.Minute, false)
	if !isDBError(err) {
		t.Errorf("expected db.Error, got %v", err)
	}
}
