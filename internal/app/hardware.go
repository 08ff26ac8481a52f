package app

import (
	"errors"
	"fmt"
	"io"
	"log"

	"tinygo.org/x/drivers"

	"github.com/sweeney/flowmouse/internal/clock"
	"github.com/sweeney/flowmouse/internal/config"
	"github.com/sweeney/flowmouse/internal/gpio"
	"github.com/sweeney/flowmouse/internal/hid"
	"github.com/sweeney/flowmouse/internal/mqtt"
	"github.com/sweeney/flowmouse/internal/pmw3389"
	"github.com/sweeney/flowmouse/internal/spidev"
)

var _ drivers.SPI = (*spidev.Bus)(nil)

// Hardware is the peripheral set the tasks drive. Each field is exclusively
// owned by one task, except Publisher which is safe for concurrent use.
type Hardware struct {
	Up     gpio.Input
	Down   gpio.Input
	Enable gpio.Input
	Output gpio.Output

	Source hid.Source
	Sink   hid.Sink

	// Publisher and Connection are nil when no broker is configured.
	Publisher  mqtt.Publisher
	Connection mqtt.ConnectionStatus

	// Sensor is the driver state shown on the status page.
	Sensor string

	chip    *gpio.Chip
	closers []io.Closer
}

// OpenHardware opens every peripheral named by cfg. On error, whatever was
// already opened is closed again.
func OpenHardware(cfg config.Config, delay clock.Delayer) (*Hardware, error) {
	hw := &Hardware{Sensor: "none"}
	if err := hw.open(cfg, delay); err != nil {
		hw.Close()
		return nil, err
	}
	return hw, nil
}

func (hw *Hardware) open(cfg config.Config, delay clock.Delayer) error {
	if err := hw.openGPIO(cfg.GPIO); err != nil {
		return err
	}
	if err := hw.openSource(cfg, delay); err != nil {
		return err
	}
	if cfg.MQTT.Broker != "" {
		p := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID)
		hw.Publisher, hw.Connection = p, p
		hw.closers = append(hw.closers, p)
	}
	return hw.openSinks(cfg)
}

func (hw *Hardware) openGPIO(cfg config.GPIO) error {
	switch cfg.Backend {
	case config.BackendGPIOCDev:
		chip, err := gpio.OpenChip(cfg.Chip)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		hw.chip = chip
		hw.closers = append(hw.closers, chip)
		if hw.Up, err = chip.Input(cfg.Up); err != nil {
			return err
		}
		if hw.Down, err = chip.Input(cfg.Down); err != nil {
			return err
		}
		if hw.Enable, err = chip.Input(cfg.Button); err != nil {
			return err
		}
		if hw.Output, err = chip.Output(cfg.LED, false); err != nil {
			return err
		}
	case config.BackendKeyboard:
		kb, err := gpio.OpenKeyboard(gpio.DefaultHold)
		if err != nil {
			return fmt.Errorf("init keyboard: %w", err)
		}
		hw.closers = append(hw.closers, kb)
		hw.Up, hw.Down, hw.Enable = kb.Key('+'), kb.Key('-'), kb.Key(' ')
		hw.Output = &gpio.LogOutput{Name: "led"}
		log.Printf("gpio: keyboard backend: '+' and '-' adjust the scale, space holds the toggle enable")
	default:
		hw.Up, hw.Down, hw.Enable = gpio.Constant(false), gpio.Constant(false), gpio.Constant(false)
		hw.Output = &gpio.LogOutput{Name: "led"}
	}
	return nil
}

func (hw *Hardware) openSource(cfg config.Config, delay clock.Delayer) error {
	if cfg.Report.Source == config.SourceSynthetic {
		hw.Source = hid.Synthetic{Period: cfg.Report.CounterPeriod, Amplitude: cfg.Report.Amplitude}
		return nil
	}

	sensor, err := OpenSensor(cfg, hw.chip, delay)
	if err != nil {
		return err
	}
	hw.closers = append(hw.closers, sensor)

	if cfg.Report.Source == config.SourceRegister {
		hw.Source = hid.RegisterSource{Dev: sensor.Device}
	} else {
		if err := sensor.EnableBurstMode(); err != nil {
			return fmt.Errorf("enable burst mode: %w", err)
		}
		hw.Source = hid.NewSensorSource(sensor.Device, cfg.Report.BurstSamples)
	}
	hw.Sensor = sensor.State().String()
	return nil
}

func (hw *Hardware) openSinks(cfg config.Config) error {
	var sinks hid.MultiSink
	for _, name := range cfg.Sinks {
		switch name {
		case config.SinkLog:
			sinks = append(sinks, &hid.LogSink{Every: 100})
		case config.SinkSerial:
			s, err := hid.OpenSerial(hid.SerialConfig{
				Device: cfg.Serial.Device,
				Baud:   cfg.Serial.Baud,
				Queue:  cfg.Serial.Queue,
			})
			if err != nil {
				return err
			}
			hw.closers = append(hw.closers, s)
			sinks = append(sinks, s)
		case config.SinkMQTT:
			if hw.Publisher == nil {
				return fmt.Errorf("mqtt sink: no broker configured")
			}
			sinks = append(sinks, &mqtt.ReportSink{Pub: hw.Publisher, Every: cfg.MQTT.ReportEvery})
		}
	}
	if len(sinks) == 0 {
		log.Printf("hid: no sinks configured, reports are discarded")
	}
	hw.Sink = sinks
	return nil
}

// Close releases peripherals in reverse order of opening and returns every
// error encountered.
func (hw *Hardware) Close() error {
	var errs []error
	for i := len(hw.closers) - 1; i >= 0; i-- {
		if err := hw.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	hw.closers = nil
	return errors.Join(errs...)
}

// Sensor is an initialised sensor session together with the bus and
// chip-select line it owns.
type Sensor struct {
	*pmw3389.Device

	bus     *spidev.Bus
	ownChip *gpio.Chip
}

// OpenSensor opens the SPI bus and chip-select line, resets the sensor and
// programs the configured resolution. chip may be nil, in which case the
// sensor opens its own.
func OpenSensor(cfg config.Config, chip *gpio.Chip, delay clock.Delayer) (*Sensor, error) {
	s := &Sensor{}
	if chip == nil {
		var err error
		if chip, err = gpio.OpenChip(cfg.GPIO.Chip); err != nil {
			return nil, fmt.Errorf("open chip-select chip: %w", err)
		}
		s.ownChip = chip
	}

	cs, err := chip.Output(cfg.GPIO.CS, true)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("chip-select pin %d: %w", cfg.GPIO.CS, err)
	}

	bus, err := spidev.Open(spidev.Config{
		Device:  cfg.Sensor.Device,
		Mode:    cfg.Sensor.Mode,
		SpeedHz: cfg.Sensor.SpeedHz,
		Bits:    8,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open spi: %w", err)
	}
	s.bus = bus

	s.Device = pmw3389.New(bus, cs, delay)
	if err := s.Init(); err != nil {
		s.Close()
		return nil, fmt.Errorf("init sensor: %w", err)
	}
	if cfg.Sensor.CPI != 0 {
		if err := s.SetCPI(cfg.Sensor.CPI); err != nil {
			s.Close()
			return nil, fmt.Errorf("set cpi: %w", err)
		}
	}
	log.Printf("pmw3389: ready on %s (cpi=%d)", cfg.Sensor.Device, cfg.Sensor.CPI)
	return s, nil
}

// Close releases the bus and, if the sensor opened it, the GPIO chip.
func (s *Sensor) Close() error {
	var errs []error
	if s.bus != nil {
		if err := s.bus.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.ownChip != nil {
		if err := s.ownChip.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
