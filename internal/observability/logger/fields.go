package logger

import (
	"time"

	"go.uber.org/zap"
)

// Standard field constructors so field names stay consistent across the
// codebase.

func RequestID(v string) zap.Field { return zap.String("request_id", v) }

func Method(v string) zap.Field { return zap.String("method", v) }

func Path(v string) zap.Field { return zap.String("path", v) }

func Status(v int) zap.Field { return zap.Int("status", v) }

func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }

// Platform is the external platform key (discord, twitter, ...).
func Platform(v string) zap.Field { return zap.String("platform", v) }

// Intent is the flow intent (login, register, link).
func Intent(v string) zap.Field { return zap.String("intent", v) }

func AccountID(v string) zap.Field { return zap.String("account_id", v) }

// Code is a stable client error code.
func Code(v string) zap.Field { return zap.String("code", v) }

func Op(v string) zap.Field { return zap.String("op", v) }

func Err(err error) zap.Field { return zap.Error(err) }

func String(k, v string) zap.Field { return zap.String(k, v) }

func Int(k string, v int) zap.Field { return zap.Int(k, v) }

func Any(k string, v any) zap.Field { return zap.Any(k, v) }
