package capture

import "encoding/binary"

// WAVFormat is the container produced by MalgoDevice.
var WAVFormat = Format{MediaType: "audio/wav", Extension: "wav"}

// streamingSize marks RIFF and data chunk sizes as unknown while the
// recording is still running. finalizeWAV replaces it once the length is known.
const streamingSize = 0xFFFFFFFF

const wavHeaderSize = 44

// wavHeader returns a PCM WAV header for a stream of unknown length.
func wavHeader(sampleRate, channels, bitsPerSample int) []byte {
	h := make([]byte, wavHeaderSize)
	blockAlign := channels * bitsPerSample / 8

	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], streamingSize)
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(h[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(h[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(h[28:32], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(h[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(h[34:36], uint16(bitsPerSample))
	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], streamingSize)
	return h
}

// finalizeWAV writes the real RIFF and data chunk sizes into a complete
// recording that starts with a wavHeader. Anything else is left untouched.
func finalizeWAV(data []byte) {
	if len(data) < wavHeaderSize ||
		string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" || string(data[36:40]) != "data" {
		return
	}
	binary.LittleEndian.PutUint32(data[4:8], uint32(len(data)-8))
	binary.LittleEndian.PutUint32(data[40:44], uint32(len(data)-wavHeaderSize))
}
