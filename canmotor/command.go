// Package canmotor drives the four wheel motor controllers over a
// SocketCAN bus and listens for their telemetry broadcast.
package canmotor

import (
	"math"

	"github.com/go-daq/canbus"

	"github.com/HopeCollector/mecanum-drive-controller/mecanum"
)

const (
	// command node ids per wheel
	kCanIdMotorFl uint32 = 0x0000022B
	kCanIdMotorFr uint32 = 0x0000022A
	kCanIdMotorRr uint32 = 0x0000022C
	kCanIdMotorRl uint32 = 0x0000022D

	// telemetry broadcast ids
	kCanIdTelemWheelSpeed uint32 = 0x241

	// motor controller states
	kStateDisable byte = 0x00
	kStateEnable  byte = 0x01

	// motor controller modes
	kModeSpeed byte = 0x00

	// motor current limit sent with every speed command
	kCurrentLimit int16 = 5

	// wheel speed telemetry scale, raw LSB to RPM
	kWheelSpeedScale = 0.0078125

	rpmToRadPerSec = 2 * math.Pi / 60
	radPerSecToRPM = 60 / (2 * math.Pi)
)

// IDs maps each wheel to its command node id.
type IDs [mecanum.NumWheels]uint32

// DefaultIDs returns the stock node addressing.
func DefaultIDs() IDs {
	return IDs{
		mecanum.FrontLeft:  kCanIdMotorFl,
		mecanum.FrontRight: kCanIdMotorFr,
		mecanum.RearRight:  kCanIdMotorRr,
		mecanum.RearLeft:   kCanIdMotorRl,
	}
}

// Command is one motor control frame payload.
type Command struct {
	State   byte
	Mode    byte
	RPM     int16
	Current int16
	Encoder int32
}

// Frame packs the command for the node with the given CAN id. State and
// mode share byte 0 as nibbles, the speed setpoint is a little endian
// int16 across bytes 1-2 with the low nibble of the current limit packed
// beside its high byte, and the encoder count fills bytes 4-7.
func (c Command) Frame(id uint32) canbus.Frame {
	frame := canbus.Frame{
		ID:   id,
		Data: make([]byte, 0, 8),
		Kind: canbus.EFF,
	}
	frame.Data = append(frame.Data, (c.State&0x0F)|((c.Mode&0x0F)<<4))
	frame.Data = append(frame.Data, byte(c.RPM&0xFF))
	frame.Data = append(frame.Data, byte((c.RPM>>8)&0xFF)|byte((c.Current&0x0F)<<4))
	frame.Data = append(frame.Data, byte((c.Current>>4)&0xFF))
	frame.Data = append(frame.Data, byte(c.Encoder&0xFF))
	frame.Data = append(frame.Data, byte((c.Encoder>>8)&0xFF))
	frame.Data = append(frame.Data, byte((c.Encoder>>16)&0xFF))
	frame.Data = append(frame.Data, byte((c.Encoder>>24)&0xFF))
	return frame
}

// clampRPM converts a wheel speed command to the controller's int16
// setpoint range.
func clampRPM(rpm float64) int16 {
	if rpm > math.MaxInt16 {
		return math.MaxInt16
	}
	if rpm < math.MinInt16 {
		return math.MinInt16
	}
	return int16(math.Round(rpm))
}
